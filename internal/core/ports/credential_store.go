package ports

import (
	"context"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// CredentialStore persists user accounts and verifies their credentials.
// Find* return domain.ErrUserNotFound when nothing matches.
type CredentialStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	// Create stores a new member account. credential is the plaintext secret;
	// the store hashes it. Returns domain.ErrUserExists on a duplicate email.
	Create(ctx context.Context, name, email, credential string) (*domain.User, error)
	VerifyCredential(user *domain.User, plaintext string) bool
}
