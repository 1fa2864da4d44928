package cache

import (
	"context"
	"log/slog"
	"time"

	"github.com/phrazzld/tasklane-api/internal/domain"
	"github.com/phrazzld/tasklane-api/internal/platform/logger"
	"github.com/vmihailenco/msgpack/v5"
)

// QueryNamespace is the leading key segment for cached task queries.
const QueryNamespace = "task-query"

// Parameter names that make up the only cacheable query shape.
const (
	ParamProjectID = "projectId"
	ParamDueDate   = "dueDate"
)

// CachedQueryResult is a stored task query result. Entries are replaced,
// never mutated.
type CachedQueryResult struct {
	Items    []domain.Task `msgpack:"items"`
	Total    int           `msgpack:"total"`
	StoredAt time.Time     `msgpack:"storedAt"`
}

// Admissible reports whether a query with these params may be cached. Only
// the exact key set {projectId, dueDate} qualifies, which bounds the cache to
// one entry per project and date range instead of one per free-form filter.
func Admissible(params Params) bool {
	if len(params) != 2 {
		return false
	}
	_, hasProject := params[ParamProjectID]
	_, hasDue := params[ParamDueDate]
	return hasProject && hasDue
}

// QueryCache is a cache-aside store for admissible task queries, scoped by
// project so a mutation can drop everything cached for that project.
//
// Backend failures never reach callers: reads degrade to misses and writes
// are logged and dropped.
type QueryCache struct {
	backend Backend
	ttl     time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewQueryCache creates a QueryCache over backend. Entries expire after ttl.
func NewQueryCache(backend Backend, ttl time.Duration, log *slog.Logger) *QueryCache {
	if backend == nil {
		// ALLOW-PANIC: Constructor enforcing required dependency
		panic("backend cannot be nil for QueryCache")
	}
	if log == nil {
		log = slog.Default()
	}
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		logger:  log.With(slog.String("component", "query_cache")),
		now:     time.Now,
	}
}

// Admits reports whether a query with these params is cached under
// projectID. On top of Admissible, the projectId param must be the string
// projectID itself, so invalidating that project always reaches the entry.
func (c *QueryCache) Admits(projectID string, params Params) bool {
	return admissibleFor(projectID, params)
}

func admissibleFor(projectID string, params Params) bool {
	if projectID == "" || !Admissible(params) {
		return false
	}
	p, ok := params[ParamProjectID].(string)
	return ok && p == projectID
}

// QueryKey returns the backend key for a query.
func QueryKey(projectID string, params Params) string {
	return Key(QueryNamespace, projectID, Fingerprint(params))
}

// TryGet returns the cached result for an admissible query. Non-admissible
// queries bypass the cache and always report false.
func (c *QueryCache) TryGet(ctx context.Context, projectID string, params Params) (*CachedQueryResult, bool) {
	if !admissibleFor(projectID, params) {
		return nil, false
	}
	log := logger.FromContextOrDefault(ctx, c.logger)
	key := QueryKey(projectID, params)

	data, found, err := c.backend.Get(ctx, key)
	if err != nil {
		log.Warn("query cache read failed, treating as miss",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
		return nil, false
	}
	if !found {
		log.Debug("query cache miss", slog.String("project_id", projectID))
		return nil, false
	}

	var result CachedQueryResult
	if err := msgpack.Unmarshal(data, &result); err != nil {
		log.Warn("query cache entry undecodable, treating as miss",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
		return nil, false
	}

	result.normalize()
	log.Debug("query cache hit", slog.String("project_id", projectID))
	return &result, true
}

// normalize puts decoded timestamps back in UTC; msgpack decodes into the
// local zone.
func (r *CachedQueryResult) normalize() {
	r.StoredAt = r.StoredAt.UTC()
	for i := range r.Items {
		t := &r.Items[i]
		t.CreatedAt = t.CreatedAt.UTC()
		t.StartDate = utcPtr(t.StartDate)
		t.DueDate = utcPtr(t.DueDate)
		t.UpdatedAt = utcPtr(t.UpdatedAt)
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// Put stores result for an admissible query, overwriting any previous entry.
// It is a no-op for non-admissible queries.
func (c *QueryCache) Put(ctx context.Context, projectID string, params Params, result CachedQueryResult) {
	if !admissibleFor(projectID, params) {
		return
	}
	log := logger.FromContextOrDefault(ctx, c.logger)

	if result.StoredAt.IsZero() {
		result.StoredAt = c.now().UTC()
	}
	data, err := msgpack.Marshal(&result)
	if err != nil {
		log.Error("failed to encode query cache entry",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
		return
	}

	if err := c.backend.Set(ctx, QueryKey(projectID, params), data, c.ttl); err != nil {
		log.Warn("query cache write failed",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
	}
}

// InvalidateProject removes every cached query for projectID regardless of
// fingerprint. Failures are logged; entries then age out through their TTL.
func (c *QueryCache) InvalidateProject(ctx context.Context, projectID string) {
	if projectID == "" {
		return
	}
	log := logger.FromContextOrDefault(ctx, c.logger)

	deleted, err := c.backend.DeleteByPrefix(ctx, Prefix(QueryNamespace, projectID))
	if err != nil {
		log.Warn("query cache invalidation failed",
			slog.String("project_id", projectID),
			slog.String("error", err.Error()))
		return
	}
	log.Debug("query cache invalidated",
		slog.String("project_id", projectID),
		slog.Int("deleted", deleted))
}
