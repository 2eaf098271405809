package domain

import (
	"strings"
	"time"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in-progress"
	StatusDone       TaskStatus = "done"
)

// Priority ranks a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// ParseStatus validates s against the known statuses. Values are matched
// exactly; nothing is coerced.
func ParseStatus(s string) (TaskStatus, error) {
	switch st := TaskStatus(s); st {
	case StatusTodo, StatusInProgress, StatusDone:
		return st, nil
	}
	return "", NewValidationError("status", "must be one of: todo, in-progress, done")
}

// ParsePriority validates s against the known priorities.
func ParsePriority(s string) (Priority, error) {
	switch p := Priority(s); p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return p, nil
	}
	return "", NewValidationError("priority", "must be one of: low, medium, high, urgent")
}

// validTransitions lists where each status may move. Tasks move freely in
// both directions; setting the current status again is allowed too.
var validTransitions = map[TaskStatus][]TaskStatus{
	StatusTodo:       {StatusTodo, StatusInProgress, StatusDone},
	StatusInProgress: {StatusTodo, StatusInProgress, StatusDone},
	StatusDone:       {StatusTodo, StatusInProgress, StatusDone},
}

// CanTransitionTo reports whether a transition from s to next is valid.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ValidateTitle returns the trimmed title or a ValidationError when it is blank.
func ValidateTitle(title string) (string, error) {
	t := strings.TrimSpace(title)
	if t == "" {
		return "", NewValidationError("title", "is required")
	}
	return t, nil
}

// Task is the core aggregate. OwnerID is set at creation and never changes.
type Task struct {
	ID          string     `json:"id" bson:"_id,omitempty"`
	OwnerID     string     `json:"owner_id" bson:"owner_id"`
	Title       string     `json:"title" bson:"title"`
	Description string     `json:"description,omitempty" bson:"description,omitempty"`
	Status      TaskStatus `json:"status" bson:"status"`
	Priority    Priority   `json:"priority" bson:"priority"`
	CreatedAt   time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" bson:"updated_at"`

	// Owner is populated on read and never persisted.
	Owner *Principal `json:"owner,omitempty" bson:"-"`
}

// TaskChanges carries the fields an update may touch. Nil means unchanged.
type TaskChanges struct {
	Title       *string
	Description *string
	Status      *TaskStatus
	Priority    *Priority
}

// Empty reports whether no field is set.
func (c TaskChanges) Empty() bool {
	return c.Title == nil && c.Description == nil && c.Status == nil && c.Priority == nil
}

// Apply copies the set fields onto t.
func (c TaskChanges) Apply(t *Task) {
	if c.Title != nil {
		t.Title = *c.Title
	}
	if c.Description != nil {
		t.Description = *c.Description
	}
	if c.Status != nil {
		t.Status = *c.Status
	}
	if c.Priority != nil {
		t.Priority = *c.Priority
	}
}
