package api

import (
	"github.com/phrazzld/tasklane-api/internal/service"
)

// MakeCoverRequest defines the payload for setting a task's cover image.
type MakeCoverRequest struct {
	TaskID    string `json:"taskId"    validate:"required"`
	ProjectID string `json:"projectId" validate:"required"`
	URL       string `json:"url"       validate:"required,url"`
}

// CounterItem is one project's entry in a counter response. A failed lookup
// has a nil Total and a sanitized Error.
type CounterItem struct {
	ProjectID string `json:"projectId"`
	Total     *int   `json:"total"`
	Error     string `json:"error,omitempty"`
}

// newCounterItems renders aggregator results in their input order.
func newCounterItems(results []service.CounterResult) []CounterItem {
	items := make([]CounterItem, 0, len(results))
	for _, r := range results {
		item := CounterItem{ProjectID: r.ProjectID}
		if r.OK() {
			total := r.Total
			item.Total = &total
		} else {
			item.Error = GetSafeErrorMessage(r.Err)
		}
		items = append(items, item)
	}
	return items
}
