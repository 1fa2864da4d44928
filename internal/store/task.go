package store

import (
	"context"
	"time"

	"github.com/phrazzld/tasklane-api/internal/domain"
)

// DoneFilter restricts a task query by completion state.
type DoneFilter string

// Accepted done filter values. DoneAny applies no restriction.
const (
	DoneAny DoneFilter = ""
	DoneYes DoneFilter = "yes"
	DoneNo  DoneFilter = "no"
)

// DateRange is an inclusive due-date window. A nil bound is open; both nil
// means unbounded.
type DateRange struct {
	From *time.Time
	To   *time.Time
}

// Unbounded reports whether neither bound is set.
func (r DateRange) Unbounded() bool {
	return r.From == nil && r.To == nil
}

// TaskFilter selects tasks. Zero-valued fields apply no restriction.
type TaskFilter struct {
	ProjectID   string
	ProjectIDs  []string
	AssigneeIDs []string
	StatusIDs   []string
	DueDate     DateRange
	Done        DoneFilter
	Term        string
	Take        int
	Skip        int
}

// StatusFilter selects task statuses by owning project.
type StatusFilter struct {
	ProjectIDs []string
}

// TaskUpdate is a partial task write. Only non-nil fields are changed;
// UpdatedAt and UpdatedBy are always written.
type TaskUpdate struct {
	ID        string
	Cover     *string
	UpdatedAt time.Time
	UpdatedBy string
}

// TaskStore defines the interface for task data access.
// Implementations are assumed to be the source of truth; callers may cache
// their results but never write tasks anywhere else.
type TaskStore interface {
	// QueryTasks returns the tasks matching filter.
	QueryTasks(ctx context.Context, filter TaskFilter) ([]domain.Task, error)

	// CountTasks returns how many tasks match filter, ignoring Take and Skip.
	CountTasks(ctx context.Context, filter TaskFilter) (int, error)

	// UpdateTask applies a partial update and returns the stored task.
	// Returns ErrTaskNotFound if no task has the given ID.
	UpdateTask(ctx context.Context, update TaskUpdate) (*domain.Task, error)

	// QueryTaskStatuses returns the statuses defined by the given projects.
	QueryTaskStatuses(ctx context.Context, filter StatusFilter) ([]domain.TaskStatus, error)

	// QueryMembership returns every project the user belongs to.
	QueryMembership(ctx context.Context, userID string) ([]domain.Membership, error)
}
