package service

import "github.com/taskhub/task-tracker/internal/core/domain"

// Action is a task operation subject to authorization.
type Action string

const (
	ActionList   Action = "list"
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  string
}

func allow() Decision             { return Decision{Allowed: true} }
func deny(reason string) Decision { return Decision{Reason: reason} }

// Err converts a deny into its domain error; nil when allowed.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason == reasonNotAuthenticated:
		return domain.ErrNotAuthenticated
	default:
		return domain.ErrForbidden
	}
}

const (
	reasonNotAuthenticated = "not authenticated"
	reasonNotAuthorized    = "not authorized"
)

// Authorize decides whether p may perform action. task is only consulted for
// per-task actions (read, update, delete). It never touches storage.
func Authorize(p *domain.Principal, action Action, task *domain.Task) Decision {
	if p == nil {
		return deny(reasonNotAuthenticated)
	}

	switch action {
	case ActionList, ActionCreate:
		// List scope is narrowed by TaskService; create forces ownership.
		return allow()
	case ActionRead, ActionUpdate, ActionDelete:
		if task == nil {
			return deny(reasonNotAuthorized)
		}
		if p.Role == domain.RoleAdmin || task.OwnerID == p.ID {
			return allow()
		}
		return deny(reasonNotAuthorized)
	default:
		return deny(reasonNotAuthorized)
	}
}
