package ports

import (
	"context"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// TaskFilter scopes Find. OwnerID empty = every task (admin view).
type TaskFilter struct {
	OwnerID string
}

// TaskStore defines persistence operations for tasks. Lookups by id return
// domain.ErrTaskNotFound for missing or malformed ids.
type TaskStore interface {
	Find(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)
	FindByID(ctx context.Context, id string) (*domain.Task, error)
	// Create inserts t and sets its ID.
	Create(ctx context.Context, t *domain.Task) error
	// UpdateByID applies changes atomically to one document and returns the
	// updated task.
	UpdateByID(ctx context.Context, id string, changes domain.TaskChanges) (*domain.Task, error)
	DeleteByID(ctx context.Context, id string) error
}

// IdempotencyStore reserves client-supplied keys and remembers which task
// each one produced. Keys are scoped per owner.
type IdempotencyStore interface {
	// Claim reserves ownerID+key. When claimed is true the caller owns the key
	// and must Remember or Release it. Otherwise taskID is the task recorded
	// for the key, or "" while the first request is still in flight.
	Claim(ctx context.Context, ownerID, key string) (taskID string, claimed bool, err error)
	Remember(ctx context.Context, ownerID, key, taskID string) error
	Release(ctx context.Context, ownerID, key string) error
}
