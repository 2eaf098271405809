package ports

import (
	"context"

	"github.com/taskhub/task-tracker/internal/core/domain"
)

// TokenService issues and verifies signed identity tokens.
type TokenService interface {
	Issue(userID string) (string, error)
	// Verify returns the embedded user id or domain.ErrInvalidToken.
	Verify(token string) (string, error)
}

// IdentityResolver turns an Authorization header into a Principal. It never
// fails: anything short of a valid token for an existing user yields nil.
type IdentityResolver interface {
	Resolve(ctx context.Context, authHeader string) *domain.Principal
}

// AuthResult is returned by Register and Login.
type AuthResult struct {
	Token string
	User  *domain.Principal
}

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}
