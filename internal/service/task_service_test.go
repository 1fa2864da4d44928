package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/phrazzld/tasklane-api/internal/cache"
	"github.com/phrazzld/tasklane-api/internal/domain"
	"github.com/phrazzld/tasklane-api/internal/events"
	"github.com/phrazzld/tasklane-api/internal/mocks"
	"github.com/phrazzld/tasklane-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type serviceFixture struct {
	svc     *taskServiceImpl
	tasks   *mocks.TaskStore
	queries *cache.QueryCache
	emitter *events.InMemoryEventEmitter
}

func newServiceFixture(t *testing.T) serviceFixture {
	t.Helper()
	tasks := new(mocks.TaskStore)
	backend := cache.NewMemoryBackend()
	queries := cache.NewQueryCache(backend, time.Minute, testLogger())
	counters := cache.NewCounterStore(backend, time.Minute, testLogger())
	agg := NewCounterAggregator(tasks, counters, nil, AggregatorConfig{}, testLogger())

	emitter := events.NewInMemoryEventEmitter(testLogger())
	emitter.RegisterHandler(NewProjectCacheInvalidator(queries, testLogger()))

	svc, err := NewTaskService(tasks, queries, agg, emitter, testLogger())
	require.NoError(t, err)

	impl := svc.(*taskServiceImpl)
	impl.now = func() time.Time { return time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC) }
	return serviceFixture{svc: impl, tasks: tasks, queries: queries, emitter: emitter}
}

func fixtureTasks(projectID string) []domain.Task {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return []domain.Task{
		{ID: "t1", ProjectID: projectID, Title: "Draft", AssigneeIDs: []string{"u1"}, TaskStatusID: "s1", CreatedAt: created},
		{ID: "t2", ProjectID: projectID, Title: "Review", AssigneeIDs: []string{"u2"}, TaskStatusID: "gone", CreatedAt: created},
	}
}

func admissibleQuery(projectID string) TaskQuery {
	return TaskQuery{
		ProjectID: projectID,
		Params:    cache.Params{cache.ParamProjectID: projectID, cache.ParamDueDate: cache.Tuple{nil, nil}},
		Filter:    store.TaskFilter{ProjectID: projectID},
	}
}

func TestNewTaskServiceValidatesDependencies(t *testing.T) {
	queries := cache.NewQueryCache(cache.NewMemoryBackend(), time.Minute, nil)
	tasks := new(mocks.TaskStore)
	agg := NewCounterAggregator(tasks, cache.NewCounterStore(cache.NewMemoryBackend(), time.Minute, nil), nil, AggregatorConfig{}, nil)
	emitter := events.NewInMemoryEventEmitter(testLogger())

	_, err := NewTaskService(nil, queries, agg, emitter, nil)
	assert.Error(t, err)
	_, err = NewTaskService(tasks, nil, agg, emitter, nil)
	assert.Error(t, err)
	_, err = NewTaskService(tasks, queries, nil, emitter, nil)
	assert.Error(t, err)
	_, err = NewTaskService(tasks, queries, agg, nil, nil)
	assert.Error(t, err)

	svc, err := NewTaskService(tasks, queries, agg, emitter, nil)
	assert.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestListTasks(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.tasks.On("QueryTasks", mock.Anything, store.TaskFilter{ProjectID: "p1"}).Return(fixtureTasks("p1"), nil).Twice()

	first, err := f.svc.ListTasks(ctx, "p1")
	require.NoError(t, err)
	assert.Len(t, first, 2)

	_, err = f.svc.ListTasks(ctx, "p1")
	require.NoError(t, err)
	f.tasks.AssertNumberOfCalls(t, "QueryTasks", 2)

	_, err = f.svc.ListTasks(ctx, "")
	assert.ErrorIs(t, err, domain.ErrProjectIDEmpty)
}

func TestQueryTasksReadsThroughCache(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.tasks.On("QueryTasks", mock.Anything, store.TaskFilter{ProjectID: "p1"}).Return(fixtureTasks("p1"), nil).Once()

	miss, err := f.svc.QueryTasks(ctx, admissibleQuery("p1"))
	require.NoError(t, err)
	assert.False(t, miss.Cached)
	require.NotNil(t, miss.Total, "a miss reports the same total a hit would")
	assert.Equal(t, 2, *miss.Total)
	assert.Len(t, miss.Items, 2)

	hit, err := f.svc.QueryTasks(ctx, admissibleQuery("p1"))
	require.NoError(t, err)
	assert.True(t, hit.Cached)
	require.NotNil(t, hit.Total)
	assert.Equal(t, 2, *hit.Total)
	assert.Equal(t, miss.Items, hit.Items)

	f.tasks.AssertExpectations(t)
}

func TestQueryTasksCounterBypassesCache(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	filter := store.TaskFilter{ProjectID: "p1", Take: 1}
	f.tasks.On("QueryTasks", mock.Anything, filter).Return(fixtureTasks("p1")[:1], nil).Twice()
	f.tasks.On("CountTasks", mock.Anything, filter).Return(2, nil).Twice()

	q := TaskQuery{
		ProjectID: "p1",
		Params: cache.Params{
			cache.ParamProjectID: "p1",
			cache.ParamDueDate:   cache.Tuple{nil, nil},
			"counter":            "true",
		},
		Filter:  filter,
		Counter: true,
	}

	for i := 0; i < 2; i++ {
		res, err := f.svc.QueryTasks(ctx, q)
		require.NoError(t, err)
		assert.False(t, res.Cached)
		require.NotNil(t, res.Total)
		assert.Equal(t, 2, *res.Total)
		assert.Len(t, res.Items, 1)
	}
	f.tasks.AssertExpectations(t)
}

func TestQueryTasksStoreError(t *testing.T) {
	f := newServiceFixture(t)
	storeErr := errors.New("db down")
	f.tasks.On("QueryTasks", mock.Anything, mock.Anything).Return(nil, storeErr)

	_, err := f.svc.QueryTasks(context.Background(), admissibleQuery("p1"))
	assert.ErrorIs(t, err, storeErr)

	_, hit := f.queries.TryGet(context.Background(), "p1", admissibleQuery("p1").Params)
	assert.False(t, hit, "failures are not cached")
}

func TestSetCoverInvalidatesProjectQueries(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.tasks.On("QueryTasks", mock.Anything, store.TaskFilter{ProjectID: "p1"}).Return(fixtureTasks("p1"), nil).Twice()
	f.tasks.On("QueryTasks", mock.Anything, store.TaskFilter{ProjectID: "p2"}).Return(fixtureTasks("p2"), nil).Once()

	_, err := f.svc.QueryTasks(ctx, admissibleQuery("p1"))
	require.NoError(t, err)
	_, err = f.svc.QueryTasks(ctx, admissibleQuery("p2"))
	require.NoError(t, err)

	cover := "https://cdn.example.com/c.png"
	updated := fixtureTasks("p1")[0]
	updated.Cover = cover
	f.tasks.On("UpdateTask", mock.Anything, store.TaskUpdate{
		ID:        "t1",
		Cover:     &cover,
		UpdatedAt: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC),
		UpdatedBy: "u1",
	}).Return(&updated, nil).Once()

	got, err := f.svc.SetCover(ctx, "u1", "t1", "p1", cover)
	require.NoError(t, err)
	assert.Equal(t, cover, got.Cover)

	_, hit := f.queries.TryGet(ctx, "p1", admissibleQuery("p1").Params)
	assert.False(t, hit, "p1 queries are invalidated before SetCover returns")
	_, hit = f.queries.TryGet(ctx, "p2", admissibleQuery("p2").Params)
	assert.True(t, hit, "other projects keep their entries")

	res, err := f.svc.QueryTasks(ctx, admissibleQuery("p1"))
	require.NoError(t, err)
	assert.False(t, res.Cached)
	f.tasks.AssertExpectations(t)
}

func TestSetCoverErrors(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	_, err := f.svc.SetCover(ctx, "u1", "", "p1", "x")
	assert.ErrorIs(t, err, domain.ErrTaskIDEmpty)
	_, err = f.svc.SetCover(ctx, "u1", "t1", "", "x")
	assert.ErrorIs(t, err, domain.ErrProjectIDEmpty)

	f.tasks.On("UpdateTask", mock.Anything, mock.Anything).Return(nil, store.ErrTaskNotFound)
	_, err = f.svc.SetCover(ctx, "u1", "missing", "p1", "x")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSetCoverInvalidatesStoredProjectToo(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	f.queries.Put(ctx, "p2", admissibleQuery("p2").Params, cache.CachedQueryResult{Total: 0})

	moved := fixtureTasks("p2")[0]
	f.tasks.On("UpdateTask", mock.Anything, mock.Anything).Return(&moved, nil)

	_, err := f.svc.SetCover(ctx, "u1", "t1", "p1", "x")
	require.NoError(t, err)

	_, hit := f.queries.TryGet(ctx, "p2", admissibleQuery("p2").Params)
	assert.False(t, hit)
}

func TestExportTasksExpandsAll(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	f.tasks.On("QueryMembership", mock.Anything, "u1").Return([]domain.Membership{
		{UserID: "u1", ProjectID: "p1"},
		{UserID: "u1", ProjectID: "p2"},
		{UserID: "u1", ProjectID: "p1"},
	}, nil).Once()

	resolved := store.TaskFilter{ProjectIDs: []string{"p1", "p2"}, Done: store.DoneNo}
	f.tasks.On("QueryTaskStatuses", mock.Anything, store.StatusFilter{ProjectIDs: []string{"p1", "p2"}}).
		Return([]domain.TaskStatus{{ID: "s1", ProjectID: "p1", Name: "Todo"}}, nil).Once()
	f.tasks.On("QueryTasks", mock.Anything, resolved).Return(fixtureTasks("p1"), nil).Once()
	f.tasks.On("CountTasks", mock.Anything, resolved).Return(2, nil).Once()

	res, err := f.svc.ExportTasks(ctx, "u1", store.TaskFilter{ProjectIDs: []string{AllProjects}, Done: store.DoneNo}, true)
	require.NoError(t, err)

	require.Len(t, res.Items, 2)
	require.NotNil(t, res.Items[0].TaskStatusName)
	assert.Equal(t, "Todo", *res.Items[0].TaskStatusName)
	assert.Nil(t, res.Items[1].TaskStatusName)
	require.NotNil(t, res.Total)
	assert.Equal(t, 2, *res.Total)
	f.tasks.AssertExpectations(t)
}

func TestExportTasksExplicitProjects(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()
	filter := store.TaskFilter{ProjectIDs: []string{"p1"}}

	f.tasks.On("QueryTaskStatuses", mock.Anything, store.StatusFilter{ProjectIDs: []string{"p1"}}).Return([]domain.TaskStatus{}, nil)
	f.tasks.On("QueryTasks", mock.Anything, filter).Return(fixtureTasks("p1"), nil)

	res, err := f.svc.ExportTasks(ctx, "u1", filter, false)
	require.NoError(t, err)
	assert.Len(t, res.Items, 2)
	assert.Nil(t, res.Total)
	f.tasks.AssertNotCalled(t, "QueryMembership", mock.Anything, mock.Anything)
	f.tasks.AssertNotCalled(t, "CountTasks", mock.Anything, mock.Anything)
}

func TestExportTasksMembershipFailureIsFatal(t *testing.T) {
	f := newServiceFixture(t)
	membershipErr := errors.New("membership unavailable")
	f.tasks.On("QueryMembership", mock.Anything, "u1").Return(nil, membershipErr)

	_, err := f.svc.ExportTasks(context.Background(), "u1", store.TaskFilter{ProjectIDs: []string{AllProjects}}, false)
	assert.ErrorIs(t, err, membershipErr)
	f.tasks.AssertNotCalled(t, "QueryTasks", mock.Anything, mock.Anything)
}

func TestExportTasksNoMemberships(t *testing.T) {
	f := newServiceFixture(t)
	f.tasks.On("QueryMembership", mock.Anything, "u1").Return([]domain.Membership{}, nil)

	res, err := f.svc.ExportTasks(context.Background(), "u1", store.TaskFilter{ProjectIDs: []string{AllProjects}}, true)
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	require.NotNil(t, res.Total)
	assert.Equal(t, 0, *res.Total)
	f.tasks.AssertNotCalled(t, "QueryTasks", mock.Anything, mock.Anything)
}

func TestExportTasksStatusFailure(t *testing.T) {
	f := newServiceFixture(t)
	statusErr := errors.New("statuses unavailable")
	f.tasks.On("QueryTaskStatuses", mock.Anything, mock.Anything).Return(nil, statusErr)
	f.tasks.On("QueryTasks", mock.Anything, mock.Anything).Return(fixtureTasks("p1"), nil).Maybe()

	_, err := f.svc.ExportTasks(context.Background(), "u1", store.TaskFilter{ProjectIDs: []string{"p1"}}, false)
	assert.ErrorIs(t, err, statusErr)
}

func TestCountOpenTasksDelegates(t *testing.T) {
	f := newServiceFixture(t)
	f.tasks.On("CountTasks", mock.Anything, openTasksFilter("u1", "p1")).Return(6, nil)

	results := f.svc.CountOpenTasks(context.Background(), "u1", []string{"p1"})
	assert.Equal(t, []CounterResult{{ProjectID: "p1", Total: 6}}, results)
}

func TestProjectCacheInvalidatorHandlesEvent(t *testing.T) {
	ctx := context.Background()
	queries := cache.NewQueryCache(cache.NewMemoryBackend(), time.Minute, testLogger())
	params := admissibleQuery("p1").Params
	queries.Put(ctx, "p1", params, cache.CachedQueryResult{Total: 1})

	event, err := events.NewTaskMutatedEvent("p1", "t1", events.MutationCoverUpdated, "u1")
	require.NoError(t, err)

	require.NoError(t, NewProjectCacheInvalidator(queries, nil).HandleEvent(ctx, event))
	_, hit := queries.TryGet(ctx, "p1", params)
	assert.False(t, hit)
}
