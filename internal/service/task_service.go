package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/tasklane-api/internal/cache"
	"github.com/phrazzld/tasklane-api/internal/domain"
	"github.com/phrazzld/tasklane-api/internal/events"
	"github.com/phrazzld/tasklane-api/internal/platform/logger"
	"github.com/phrazzld/tasklane-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// AllProjects in an export's project list expands to every project the
// requesting user is a member of.
const AllProjects = "ALL"

// TaskQuery is a counted task query. Params is the query exactly as received
// and decides cache admission; Filter is its typed form sent to the store.
type TaskQuery struct {
	ProjectID string
	Params    cache.Params
	Filter    store.TaskFilter
	Counter   bool
}

// QueryResult is the outcome of a counted query. Total is set for cacheable
// queries and whenever a count was requested.
type QueryResult struct {
	Items  []domain.Task
	Total  *int
	Cached bool
}

// ExportResult is the outcome of an export.
type ExportResult struct {
	Items []domain.TaskWithStatus
	Total *int
}

// TaskService provides task read paths backed by the caches, plus the task
// mutations that invalidate them.
type TaskService interface {
	// ListTasks returns every task of a project. It is never cached.
	ListTasks(ctx context.Context, projectID string) ([]domain.Task, error)

	// QueryTasks runs a counted query, reading through the query cache when
	// the query is admissible.
	QueryTasks(ctx context.Context, q TaskQuery) (*QueryResult, error)

	// ExportTasks returns tasks joined with their status names, expanding
	// AllProjects through the user's memberships.
	ExportTasks(ctx context.Context, userID string, filter store.TaskFilter, counter bool) (*ExportResult, error)

	// SetCover sets a task's cover image. Cached queries for the project are
	// invalidated before it returns.
	SetCover(ctx context.Context, actorID, taskID, projectID, cover string) (*domain.Task, error)

	// CountOpenTasks returns the user's open-task count per project.
	CountOpenTasks(ctx context.Context, userID string, projectIDs []string) []CounterResult
}

type taskServiceImpl struct {
	tasks        store.TaskStore
	queryCache   *cache.QueryCache
	aggregator   *CounterAggregator
	eventEmitter events.EventEmitter
	logger       *slog.Logger
	now          func() time.Time
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tasks store.TaskStore,
	queryCache *cache.QueryCache,
	aggregator *CounterAggregator,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	if tasks == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "tasks cannot be nil"}
	}
	if queryCache == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "queryCache cannot be nil"}
	}
	if aggregator == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "aggregator cannot be nil"}
	}
	if eventEmitter == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "eventEmitter cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		tasks:        tasks,
		queryCache:   queryCache,
		aggregator:   aggregator,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "task_service"),
		now:          time.Now,
	}, nil
}

// ListTasks implements TaskService.
func (s *taskServiceImpl) ListTasks(ctx context.Context, projectID string) ([]domain.Task, error) {
	if projectID == "" {
		return nil, domain.NewValidationError("projectId", "is required", domain.ErrProjectIDEmpty)
	}

	tasks, err := s.tasks.QueryTasks(ctx, store.TaskFilter{ProjectID: projectID})
	if err != nil {
		return nil, NewTaskServiceError("list_tasks", "failed to query tasks", err)
	}
	return tasks, nil
}

// QueryTasks implements TaskService.
func (s *taskServiceImpl) QueryTasks(ctx context.Context, q TaskQuery) (*QueryResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if cached, ok := s.queryCache.TryGet(ctx, q.ProjectID, q.Params); ok {
		total := cached.Total
		return &QueryResult{Items: cached.Items, Total: &total, Cached: true}, nil
	}

	items, err := s.tasks.QueryTasks(ctx, q.Filter)
	if err != nil {
		return nil, NewTaskServiceError("query_tasks", "failed to query tasks", err)
	}

	result := &QueryResult{Items: items}
	if q.Counter {
		total, err := s.tasks.CountTasks(ctx, q.Filter)
		if err != nil {
			return nil, NewTaskServiceError("query_tasks", "failed to count tasks", err)
		}
		result.Total = &total
	}

	// An admissible query has no paging or extra filters, so its item count
	// is the full total. Misses report it too, matching what a hit returns.
	if s.queryCache.Admits(q.ProjectID, q.Params) {
		total := len(items)
		if result.Total == nil {
			result.Total = &total
		}
		s.queryCache.Put(ctx, q.ProjectID, q.Params, cache.CachedQueryResult{
			Items: items,
			Total: total,
		})
		log.Debug("query result cached", "project_id", q.ProjectID, "items", len(items))
	}

	return result, nil
}

// ExportTasks implements TaskService.
func (s *taskServiceImpl) ExportTasks(
	ctx context.Context,
	userID string,
	filter store.TaskFilter,
	counter bool,
) (*ExportResult, error) {
	projectIDs, expanded, err := s.resolveProjects(ctx, userID, filter.ProjectIDs)
	if err != nil {
		return nil, err
	}
	filter.ProjectIDs = projectIDs

	// An ALL expansion with no memberships selects nothing; an empty
	// ProjectIDs filter would instead select every project.
	if expanded && len(projectIDs) == 0 {
		result := &ExportResult{Items: []domain.TaskWithStatus{}}
		if counter {
			zero := 0
			result.Total = &zero
		}
		return result, nil
	}

	var (
		statuses []domain.TaskStatus
		tasks    []domain.Task
		total    int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		statuses, err = s.tasks.QueryTaskStatuses(gctx, store.StatusFilter{ProjectIDs: filter.ProjectIDs})
		if err != nil {
			return NewTaskServiceError("export_tasks", "failed to query task statuses", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		tasks, err = s.tasks.QueryTasks(gctx, filter)
		if err != nil {
			return NewTaskServiceError("export_tasks", "failed to query tasks", err)
		}
		return nil
	})
	if counter {
		g.Go(func() error {
			var err error
			total, err = s.tasks.CountTasks(gctx, filter)
			if err != nil {
				return NewTaskServiceError("export_tasks", "failed to count tasks", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &ExportResult{Items: domain.JoinStatusNames(tasks, statuses)}
	if counter {
		result.Total = &total
	}
	return result, nil
}

// resolveProjects expands AllProjects into the user's memberships and reports
// whether it did. Without AllProjects the input is returned unchanged.
func (s *taskServiceImpl) resolveProjects(ctx context.Context, userID string, projectIDs []string) ([]string, bool, error) {
	expand := false
	for _, id := range projectIDs {
		if id == AllProjects {
			expand = true
			break
		}
	}
	if !expand {
		return projectIDs, false, nil
	}

	members, err := s.tasks.QueryMembership(ctx, userID)
	if err != nil {
		return nil, true, NewTaskServiceError("export_tasks", "failed to resolve project membership", err)
	}

	resolved := make([]string, 0, len(members))
	seen := make(map[string]struct{}, len(members))
	for _, m := range members {
		if _, dup := seen[m.ProjectID]; dup || m.ProjectID == "" {
			continue
		}
		seen[m.ProjectID] = struct{}{}
		resolved = append(resolved, m.ProjectID)
	}
	return resolved, true, nil
}

// SetCover implements TaskService.
func (s *taskServiceImpl) SetCover(
	ctx context.Context,
	actorID, taskID, projectID, cover string,
) (*domain.Task, error) {
	if taskID == "" {
		return nil, domain.NewValidationError("taskId", "is required", domain.ErrTaskIDEmpty)
	}
	if projectID == "" {
		return nil, domain.NewValidationError("projectId", "is required", domain.ErrProjectIDEmpty)
	}

	updated, err := s.tasks.UpdateTask(ctx, store.TaskUpdate{
		ID:        taskID,
		Cover:     &cover,
		UpdatedAt: s.now().UTC(),
		UpdatedBy: actorID,
	})
	if err != nil {
		return nil, NewTaskServiceError("set_cover", "failed to update task", err)
	}

	s.emitMutation(ctx, projectID, taskID, actorID)
	if updated.ProjectID != "" && updated.ProjectID != projectID {
		s.emitMutation(ctx, updated.ProjectID, taskID, actorID)
	}

	return updated, nil
}

// emitMutation publishes a cover change. Handler failures are logged only:
// the write already succeeded and stale entries still age out.
func (s *taskServiceImpl) emitMutation(ctx context.Context, projectID, taskID, actorID string) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewTaskMutatedEvent(projectID, taskID, events.MutationCoverUpdated, actorID)
	if err != nil {
		log.Error("failed to create task mutated event", "error", err, "task_id", taskID)
		return
	}
	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		log.Warn("task mutated event not fully handled",
			"error", err,
			"event_id", event.ID,
			"project_id", projectID)
	}
}

// CountOpenTasks implements TaskService.
func (s *taskServiceImpl) CountOpenTasks(ctx context.Context, userID string, projectIDs []string) []CounterResult {
	return s.aggregator.Aggregate(ctx, userID, projectIDs)
}
