package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/phrazzld/tasklane-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleTasks(projectID string) []domain.Task {
	created := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	due := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	return []domain.Task{
		{
			ID:          "t1",
			ProjectID:   projectID,
			Title:       "Write release notes",
			AssigneeIDs: []string{"u1", "u2"},
			DueDate:     &due,
			Done:        false,
			Priority:    "high",
			CreatedAt:   created,
			CreatedBy:   "u1",
		},
		{
			ID:          "t2",
			ProjectID:   projectID,
			Title:       "Tag build",
			AssigneeIDs: []string{"u3"},
			Done:        true,
			CreatedAt:   created.Add(time.Hour),
		},
	}
}

func openRange() Params {
	return Params{ParamProjectID: "p1", ParamDueDate: Tuple{nil, nil}}
}

func TestAdmissible(t *testing.T) {
	tests := []struct {
		name     string
		params   Params
		expected bool
	}{
		{name: "exact key set", params: Params{"projectId": "p1", "dueDate": Tuple{nil, nil}}, expected: true},
		{name: "null due date still admissible", params: Params{"projectId": "p1", "dueDate": nil}, expected: true},
		{name: "extra counter key", params: Params{"projectId": "p1", "dueDate": nil, "counter": "true"}, expected: false},
		{name: "extra status key", params: Params{"projectId": "p1", "dueDate": nil, "status": "s1"}, expected: false},
		{name: "missing due date", params: Params{"projectId": "p1"}, expected: false},
		{name: "two keys wrong names", params: Params{"projectId": "p1", "status": "s1"}, expected: false},
		{name: "empty", params: Params{}, expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Admissible(tc.params))
		})
	}
}

func TestQueryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	qc := NewQueryCache(NewMemoryBackend(), time.Minute, discardLogger())

	stored := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	want := CachedQueryResult{Items: sampleTasks("p1"), Total: 2, StoredAt: stored}

	_, hit := qc.TryGet(ctx, "p1", openRange())
	assert.False(t, hit)

	qc.Put(ctx, "p1", openRange(), want)

	got, hit := qc.TryGet(ctx, "p1", openRange())
	require.True(t, hit)
	assert.Equal(t, want, *got)
}

func TestQueryCachePutStampsStoredAt(t *testing.T) {
	ctx := context.Background()
	qc := NewQueryCache(NewMemoryBackend(), time.Minute, discardLogger())
	fixed := time.Date(2026, 5, 5, 5, 5, 5, 0, time.UTC)
	qc.now = func() time.Time { return fixed }

	qc.Put(ctx, "p1", openRange(), CachedQueryResult{Items: sampleTasks("p1"), Total: 2})

	got, hit := qc.TryGet(ctx, "p1", openRange())
	require.True(t, hit)
	assert.Equal(t, fixed, got.StoredAt)
}

func TestQueryCacheNonAdmissibleBypass(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	qc := NewQueryCache(backend, time.Minute, discardLogger())

	params := Params{ParamProjectID: "p1", ParamDueDate: nil, "status": "s1"}
	qc.Put(ctx, "p1", params, CachedQueryResult{Items: sampleTasks("p1"), Total: 2})

	assert.Equal(t, 0, backend.Len())
	_, hit := qc.TryGet(ctx, "p1", params)
	assert.False(t, hit)
}

func TestQueryCacheRejectsMismatchedScope(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	qc := NewQueryCache(backend, time.Minute, discardLogger())

	qc.Put(ctx, "p2", openRange(), CachedQueryResult{Items: sampleTasks("p1"), Total: 2})
	assert.Equal(t, 0, backend.Len())

	qc.Put(ctx, "", openRange(), CachedQueryResult{Total: 1})
	assert.Equal(t, 0, backend.Len())
}

func TestQueryCacheRejectsNonStringProjectParam(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	qc := NewQueryCache(backend, time.Minute, discardLogger())

	for _, value := range []any{[]string{"p1"}, nil, 1, Tuple{"p1"}} {
		params := Params{ParamProjectID: value, ParamDueDate: Tuple{nil, nil}}
		assert.False(t, qc.Admits("p1", params), "%#v", value)

		qc.Put(ctx, "p1", params, CachedQueryResult{Items: sampleTasks("p1"), Total: 2})
		_, hit := qc.TryGet(ctx, "p1", params)
		assert.False(t, hit)
	}
	assert.Equal(t, 0, backend.Len())
	assert.True(t, qc.Admits("p1", openRange()))
}

func TestQueryCacheParamOrderSharesEntry(t *testing.T) {
	ctx := context.Background()
	qc := NewQueryCache(NewMemoryBackend(), time.Minute, discardLogger())

	first := Params{}
	first[ParamProjectID] = "p1"
	first[ParamDueDate] = Tuple{"2026-01-01", nil}
	second := Params{}
	second[ParamDueDate] = Tuple{"2026-01-01", nil}
	second[ParamProjectID] = "p1"

	qc.Put(ctx, "p1", first, CachedQueryResult{Items: sampleTasks("p1"), Total: 2})

	got, hit := qc.TryGet(ctx, "p1", second)
	require.True(t, hit)
	assert.Equal(t, 2, got.Total)
}

func TestQueryCacheInvalidateProject(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	qc := NewQueryCache(backend, time.Minute, discardLogger())

	ranges := []Params{
		{ParamProjectID: "p1", ParamDueDate: Tuple{nil, nil}},
		{ParamProjectID: "p1", ParamDueDate: Tuple{"2026-01-01", nil}},
		{ParamProjectID: "p1", ParamDueDate: Tuple{nil, "2026-12-31"}},
	}
	for _, p := range ranges {
		qc.Put(ctx, "p1", p, CachedQueryResult{Items: sampleTasks("p1"), Total: 2})
	}
	sibling := Params{ParamProjectID: "p10", ParamDueDate: Tuple{nil, nil}}
	qc.Put(ctx, "p10", sibling, CachedQueryResult{Items: sampleTasks("p10"), Total: 2})
	require.Equal(t, 4, backend.Len())

	qc.InvalidateProject(ctx, "p1")

	for _, p := range ranges {
		_, hit := qc.TryGet(ctx, "p1", p)
		assert.False(t, hit, "entry for %v survived invalidation", p)
	}
	_, hit := qc.TryGet(ctx, "p10", sibling)
	assert.True(t, hit, "sibling project must keep its entries")
}

func TestQueryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	backend.now = func() time.Time { return now }
	qc := NewQueryCache(backend, time.Minute, discardLogger())

	qc.Put(ctx, "p1", openRange(), CachedQueryResult{Items: sampleTasks("p1"), Total: 2})
	now = now.Add(2 * time.Minute)

	_, hit := qc.TryGet(ctx, "p1", openRange())
	assert.False(t, hit)
}

func TestQueryCacheFailOpen(t *testing.T) {
	ctx := context.Background()
	qc := NewQueryCache(failingBackend{err: errBackendDown}, time.Minute, discardLogger())

	assert.NotPanics(t, func() {
		qc.Put(ctx, "p1", openRange(), CachedQueryResult{Items: sampleTasks("p1"), Total: 2})
		qc.InvalidateProject(ctx, "p1")
	})
	_, hit := qc.TryGet(ctx, "p1", openRange())
	assert.False(t, hit)
}

func TestQueryCacheUndecodableEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	qc := NewQueryCache(backend, time.Minute, discardLogger())

	require.NoError(t, backend.Set(ctx, QueryKey("p1", openRange()), []byte{0xc1}, time.Minute))

	_, hit := qc.TryGet(ctx, "p1", openRange())
	assert.False(t, hit)
}

func TestNewQueryCachePanicsOnNilBackend(t *testing.T) {
	assert.Panics(t, func() { NewQueryCache(nil, time.Minute, nil) })
}
