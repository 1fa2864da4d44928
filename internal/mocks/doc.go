// Package mocks holds shared test doubles for the service's outward
// dependencies.
//
// MockJWTService uses function fields so a test overrides only the calls it
// cares about. TaskStore embeds testify's mock.Mock for tests that assert on
// the exact store calls made, for example that a cached query never reaches
// the store:
//
//	tasks := &mocks.TaskStore{}
//	tasks.On("QueryTasks", mock.Anything, mock.Anything).Return(nil, nil).Once()
//	defer tasks.AssertExpectations(t)
package mocks
