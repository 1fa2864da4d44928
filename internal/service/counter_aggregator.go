package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/tasklane-api/internal/background"
	"github.com/phrazzld/tasklane-api/internal/cache"
	"github.com/phrazzld/tasklane-api/internal/domain"
	"github.com/phrazzld/tasklane-api/internal/platform/logger"
	"github.com/phrazzld/tasklane-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// CounterResult is the open-task count for one project. Err is set when the
// count could not be resolved; Total is meaningless in that case.
type CounterResult struct {
	ProjectID string
	Total     int
	Err       error
}

// OK reports whether the count was resolved.
func (r CounterResult) OK() bool {
	return r.Err == nil
}

// AggregatorConfig tunes the counter fan-out.
type AggregatorConfig struct {
	// Timeout bounds each task store count. Zero disables the timeout.
	Timeout time.Duration
	// Fanout caps concurrent lookups. Zero or negative means unbounded.
	Fanout int
}

// CounterAggregator resolves open-task counts for a user across projects,
// reading through the counter store.
type CounterAggregator struct {
	tasks     store.TaskStore
	counters  *cache.CounterStore
	writeback background.QueueWriter
	cfg       AggregatorConfig
	logger    *slog.Logger
}

// NewCounterAggregator creates a CounterAggregator. Resolved counts are
// written back through writeback; a nil writeback writes them inline.
func NewCounterAggregator(
	tasks store.TaskStore,
	counters *cache.CounterStore,
	writeback background.QueueWriter,
	cfg AggregatorConfig,
	log *slog.Logger,
) *CounterAggregator {
	if tasks == nil || counters == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("task store and counter store are required for CounterAggregator")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CounterAggregator{
		tasks:     tasks,
		counters:  counters,
		writeback: writeback,
		cfg:       cfg,
		logger:    log.With("component", "counter_aggregator"),
	}
}

// Aggregate returns one result per entry of projectIDs, in the same order.
// Lookups run concurrently and a failure in one project never affects the
// others, so Aggregate itself cannot fail.
func (a *CounterAggregator) Aggregate(ctx context.Context, userID string, projectIDs []string) []CounterResult {
	results := make([]CounterResult, len(projectIDs))
	if len(projectIDs) == 0 {
		return results
	}

	var g errgroup.Group
	if a.cfg.Fanout > 0 {
		g.SetLimit(a.cfg.Fanout)
	}
	for i, projectID := range projectIDs {
		i, projectID := i, projectID
		g.Go(func() error {
			results[i] = a.resolve(ctx, userID, projectID)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (a *CounterAggregator) resolve(ctx context.Context, userID, projectID string) CounterResult {
	if projectID == "" {
		return CounterResult{ProjectID: projectID, Err: domain.ErrProjectIDEmpty}
	}

	// Cached counts are written back without extending their TTL.
	if total, ok := a.counters.Get(ctx, userID, projectID); ok {
		a.writeBack(ctx, userID, projectID, total, a.counters.Refresh)
		return CounterResult{ProjectID: projectID, Total: total}
	}

	total, err := a.count(ctx, userID, projectID)
	if err != nil {
		logger.FromContextOrDefault(ctx, a.logger).Warn("open task count failed",
			"project_id", projectID,
			"error", err)
		return CounterResult{ProjectID: projectID, Err: err}
	}

	a.writeBack(ctx, userID, projectID, total, a.counters.Set)
	return CounterResult{ProjectID: projectID, Total: total}
}

func (a *CounterAggregator) count(ctx context.Context, userID, projectID string) (int, error) {
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	total, err := a.tasks.CountTasks(ctx, store.TaskFilter{
		ProjectID:   projectID,
		AssigneeIDs: []string{userID},
		Done:        store.DoneNo,
	})
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: %w", ErrCounterTimeout, err)
		}
		return 0, err
	}
	return total, nil
}

type counterWrite func(ctx context.Context, userID, projectID string, total int)

func (a *CounterAggregator) writeBack(ctx context.Context, userID, projectID string, total int, write counterWrite) {
	if a.writeback == nil {
		write(ctx, userID, projectID, total)
		return
	}

	job := background.NewJob("counter_writeback", func(jobCtx context.Context) error {
		write(jobCtx, userID, projectID, total)
		return nil
	})
	if err := a.writeback.Enqueue(job); err != nil {
		logger.FromContextOrDefault(ctx, a.logger).Warn("counter write-back dropped",
			"project_id", projectID,
			"error", err)
	}
}
