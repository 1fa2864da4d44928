package domain

import (
	"errors"
	"time"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task reference carries no ID.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrProjectIDEmpty is returned when a project-scoped operation has no project ID.
	ErrProjectIDEmpty = errors.New("project ID cannot be empty")
)

// Task is a unit of work inside a project. It is owned by the task store;
// the cache layer passes it through without interpreting its fields.
type Task struct {
	ID           string     `json:"id"                     msgpack:"id"`
	ProjectID    string     `json:"projectId"              msgpack:"projectId"`
	Title        string     `json:"title"                  msgpack:"title"`
	AssigneeIDs  []string   `json:"assigneeIds"            msgpack:"assigneeIds"`
	StartDate    *time.Time `json:"startDate,omitempty"    msgpack:"startDate,omitempty"`
	DueDate      *time.Time `json:"dueDate,omitempty"      msgpack:"dueDate,omitempty"`
	TaskStatusID string     `json:"taskStatusId,omitempty" msgpack:"taskStatusId,omitempty"`
	Done         bool       `json:"done"                   msgpack:"done"`
	Priority     string     `json:"priority,omitempty"     msgpack:"priority,omitempty"`
	Cover        string     `json:"cover,omitempty"        msgpack:"cover,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"              msgpack:"createdAt"`
	CreatedBy    string     `json:"createdBy,omitempty"    msgpack:"createdBy,omitempty"`
	UpdatedAt    *time.Time `json:"updatedAt,omitempty"    msgpack:"updatedAt,omitempty"`
	UpdatedBy    string     `json:"updatedBy,omitempty"    msgpack:"updatedBy,omitempty"`
}

// TaskStatus is a project-defined workflow column (e.g. "Todo", "Review").
type TaskStatus struct {
	ID        string `json:"id"`
	ProjectID string `json:"projectId"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	Order     int    `json:"order"`
}

// Membership links a user to a project they belong to.
type Membership struct {
	UserID    string `json:"userId"`
	ProjectID string `json:"projectId"`
}

// TaskWithStatus is an exported task joined with the name of its status.
// TaskStatusName is nil when the task's status is unknown to the project.
type TaskWithStatus struct {
	Task
	TaskStatusName *string `json:"taskStatusName"`
}

// JoinStatusNames attaches status names to tasks using a lookup table built
// from statuses. Tasks whose status is not in the table get a nil name.
func JoinStatusNames(tasks []Task, statuses []TaskStatus) []TaskWithStatus {
	names := make(map[string]string, len(statuses))
	for _, s := range statuses {
		names[s.ID] = s.Name
	}

	out := make([]TaskWithStatus, 0, len(tasks))
	for _, t := range tasks {
		row := TaskWithStatus{Task: t}
		if name, ok := names[t.TaskStatusID]; ok {
			row.TaskStatusName = &name
		}
		out = append(out, row)
	}
	return out
}
