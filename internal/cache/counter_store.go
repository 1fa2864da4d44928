package cache

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/phrazzld/tasklane-api/internal/platform/logger"
)

// CounterNamespace is the leading key segment for open-task counters.
const CounterNamespace = "todo-counter"

// CounterStore keeps advisory open-task counts per (user, project). Values
// may be stale; they are only ever overwritten or expired, and only a fresh
// count from the task store extends an entry's lifetime.
type CounterStore struct {
	backend Backend
	ttl     time.Duration
	logger  *slog.Logger
}

// NewCounterStore creates a CounterStore over backend. Entries expire after ttl.
func NewCounterStore(backend Backend, ttl time.Duration, log *slog.Logger) *CounterStore {
	if backend == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("backend cannot be nil for CounterStore")
	}
	if log == nil {
		log = slog.Default()
	}
	return &CounterStore{
		backend: backend,
		ttl:     ttl,
		logger:  log.With(slog.String("component", "counter_store")),
	}
}

// CounterKey returns the backend key for a user's counter in a project.
func CounterKey(userID, projectID string) string {
	return Key(CounterNamespace, userID, projectID)
}

// Get returns the cached count. Backend errors and unreadable values are
// reported as absent.
func (s *CounterStore) Get(ctx context.Context, userID, projectID string) (int, bool) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	data, found, err := s.backend.Get(ctx, CounterKey(userID, projectID))
	if err != nil {
		log.Warn("counter read failed, treating as miss",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
		return 0, false
	}
	if !found {
		return 0, false
	}

	total, err := strconv.Atoi(string(data))
	if err != nil {
		log.Warn("counter value unreadable, treating as miss",
			slog.String("project_id", projectID),
			slog.String("value", string(data)))
		return 0, false
	}
	return total, true
}

// Set overwrites the cached count with a fresh TTL. Failures are logged and
// swallowed.
func (s *CounterStore) Set(ctx context.Context, userID, projectID string, total int) {
	s.write(ctx, userID, projectID, total, s.ttl)
}

// Refresh rewrites a count that was read from the store. The entry keeps its
// remaining TTL, so a value that is polled often still expires and gets
// recounted. Absent entries are left absent.
func (s *CounterStore) Refresh(ctx context.Context, userID, projectID string, total int) {
	s.write(ctx, userID, projectID, total, KeepTTL)
}

func (s *CounterStore) write(ctx context.Context, userID, projectID string, total int, ttl time.Duration) {
	err := s.backend.Set(ctx, CounterKey(userID, projectID), []byte(strconv.Itoa(total)), ttl)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("counter write failed",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
	}
}
