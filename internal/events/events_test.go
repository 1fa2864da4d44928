package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklane-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskMutatedEvent(t *testing.T) {
	event, err := NewTaskMutatedEvent("p1", "t1", MutationCoverUpdated, "u1")

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, event.ID)
	assert.Equal(t, "p1", event.ProjectID)
	assert.Equal(t, "t1", event.TaskID)
	assert.Equal(t, MutationCoverUpdated, event.Kind)
	assert.Equal(t, "u1", event.ActorID)
	assert.WithinDuration(t, time.Now(), event.CreatedAt, 2*time.Second)

	encoded, err := json.Marshal(event)
	require.NoError(t, err)
	assert.Contains(t, string(encoded), `"kind":"cover_updated"`)
}

func TestNewTaskMutatedEventRequiresProject(t *testing.T) {
	_, err := NewTaskMutatedEvent("", "t1", MutationCoverUpdated, "u1")
	assert.ErrorIs(t, err, domain.ErrProjectIDEmpty)
}

// MockEventHandler implements the EventHandler interface for testing
type MockEventHandler struct {
	// The last event received by this handler
	LastEvent *TaskMutatedEvent
	// Error to return from HandleEvent
	HandlerError error
	// Count of events handled
	HandledCount int
}

// HandleEvent implements the EventHandler interface
func (h *MockEventHandler) HandleEvent(ctx context.Context, event *TaskMutatedEvent) error {
	h.LastEvent = event
	h.HandledCount++
	return h.HandlerError
}

func TestHandlerFunc(t *testing.T) {
	var got *TaskMutatedEvent
	h := HandlerFunc(func(_ context.Context, e *TaskMutatedEvent) error {
		got = e
		return errors.New("handled")
	})

	event, err := NewTaskMutatedEvent("p1", "t1", MutationCoverUpdated, "")
	require.NoError(t, err)

	assert.EqualError(t, h.HandleEvent(context.Background(), event), "handled")
	assert.Same(t, event, got)
}
