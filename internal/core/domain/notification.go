package domain

import "time"

// EventKind names the mutation a NotificationEvent reports.
type EventKind string

const (
	EventTaskCreated EventKind = "task_created"
	EventTaskUpdated EventKind = "task_updated"
	EventTaskDeleted EventKind = "task_deleted"
)

// NotificationEvent is a transient, human-readable report of a task mutation.
// Task is nil for deletions; TaskID is always set.
type NotificationEvent struct {
	Kind       EventKind `json:"event"`
	Message    string    `json:"message"`
	TaskID     string    `json:"id"`
	Task       *Task     `json:"task,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
