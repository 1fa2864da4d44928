package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/tasklane-api/internal/domain"
)

// MutationKind names what happened to a task.
type MutationKind string

// Known mutation kinds
const (
	MutationCoverUpdated MutationKind = "cover_updated"
)

// TaskMutatedEvent is raised after a task has been written. Handlers use the
// project ID to drop anything derived from that project's tasks.
type TaskMutatedEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	ProjectID string       `json:"project_id"`
	TaskID    string       `json:"task_id"`
	Kind      MutationKind `json:"kind"`

	// ActorID is the user who made the change
	ActorID string `json:"actor_id,omitempty"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// NewTaskMutatedEvent creates an event for a change to taskID in projectID.
func NewTaskMutatedEvent(projectID, taskID string, kind MutationKind, actorID string) (*TaskMutatedEvent, error) {
	if projectID == "" {
		return nil, domain.ErrProjectIDEmpty
	}
	return &TaskMutatedEvent{
		ID:        uuid.New(),
		ProjectID: projectID,
		TaskID:    taskID,
		Kind:      kind,
		ActorID:   actorID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskMutatedEvent) error
}

// EventEmitter defines an interface for components that can emit events.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskMutatedEvent) error
}

// HandlerFunc adapts a function to the EventHandler interface.
type HandlerFunc func(ctx context.Context, event *TaskMutatedEvent) error

// HandleEvent implements EventHandler.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskMutatedEvent) error {
	return f(ctx, event)
}
