package service

import (
	"context"
	"log/slog"

	"github.com/phrazzld/tasklane-api/internal/cache"
	"github.com/phrazzld/tasklane-api/internal/events"
)

// ProjectCacheInvalidator drops a project's cached queries whenever one of
// its tasks is mutated.
type ProjectCacheInvalidator struct {
	cache  *cache.QueryCache
	logger *slog.Logger
}

var _ events.EventHandler = (*ProjectCacheInvalidator)(nil)

// NewProjectCacheInvalidator creates an invalidator for queryCache.
func NewProjectCacheInvalidator(queryCache *cache.QueryCache, logger *slog.Logger) *ProjectCacheInvalidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectCacheInvalidator{
		cache:  queryCache,
		logger: logger.With("component", "project_cache_invalidator"),
	}
}

// HandleEvent implements events.EventHandler. It never fails: invalidation
// errors are logged by the cache and the entries expire on their own.
func (h *ProjectCacheInvalidator) HandleEvent(ctx context.Context, event *events.TaskMutatedEvent) error {
	h.logger.Debug("invalidating project queries",
		"project_id", event.ProjectID,
		"event_id", event.ID,
		"kind", event.Kind)
	h.cache.InvalidateProject(ctx, event.ProjectID)
	return nil
}
