package mocks

import (
	"context"

	"github.com/phrazzld/tasklane-api/internal/domain"
	"github.com/phrazzld/tasklane-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// TaskStore is a mock of store.TaskStore for use with testify/mock.
type TaskStore struct {
	mock.Mock
}

var _ store.TaskStore = (*TaskStore)(nil)

// QueryTasks is a mock implementation of store.TaskStore.QueryTasks
func (m *TaskStore) QueryTasks(ctx context.Context, filter store.TaskFilter) ([]domain.Task, error) {
	args := m.Called(ctx, filter)
	if tasks, ok := args.Get(0).([]domain.Task); ok {
		return tasks, args.Error(1)
	}
	return nil, args.Error(1)
}

// CountTasks is a mock implementation of store.TaskStore.CountTasks
func (m *TaskStore) CountTasks(ctx context.Context, filter store.TaskFilter) (int, error) {
	args := m.Called(ctx, filter)
	return args.Int(0), args.Error(1)
}

// UpdateTask is a mock implementation of store.TaskStore.UpdateTask
func (m *TaskStore) UpdateTask(ctx context.Context, update store.TaskUpdate) (*domain.Task, error) {
	args := m.Called(ctx, update)
	if task, ok := args.Get(0).(*domain.Task); ok {
		return task, args.Error(1)
	}
	return nil, args.Error(1)
}

// QueryTaskStatuses is a mock implementation of store.TaskStore.QueryTaskStatuses
func (m *TaskStore) QueryTaskStatuses(ctx context.Context, filter store.StatusFilter) ([]domain.TaskStatus, error) {
	args := m.Called(ctx, filter)
	if statuses, ok := args.Get(0).([]domain.TaskStatus); ok {
		return statuses, args.Error(1)
	}
	return nil, args.Error(1)
}

// QueryMembership is a mock implementation of store.TaskStore.QueryMembership
func (m *TaskStore) QueryMembership(ctx context.Context, userID string) ([]domain.Membership, error) {
	args := m.Called(ctx, userID)
	if members, ok := args.Get(0).([]domain.Membership); ok {
		return members, args.Error(1)
	}
	return nil, args.Error(1)
}
