package ports

import (
	"context"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// CreateTaskInput carries the fields a caller may supply on create.
// OwnerID is accepted for wire compatibility but always replaced by the caller.
type CreateTaskInput struct {
	Title          string
	Description    string
	Priority       *string // nil = medium
	OwnerID        string
	IdempotencyKey string
}

// UpdateTaskInput is a partial update; nil fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *string
	Priority    *string
}

// TaskService defines the task lifecycle use cases. Every method takes the
// resolved caller; a nil principal yields domain.ErrNotAuthenticated.
type TaskService interface {
	List(ctx context.Context, p *domain.Principal) ([]*domain.Task, error)
	Get(ctx context.Context, p *domain.Principal, id string) (*domain.Task, error)
	Create(ctx context.Context, p *domain.Principal, in CreateTaskInput) (*domain.Task, error)
	Update(ctx context.Context, p *domain.Principal, id string, in UpdateTaskInput) (*domain.Task, error)
	Delete(ctx context.Context, p *domain.Principal, id string) error
}
