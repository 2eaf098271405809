package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

// IdentityResolver maps a bearer token to a Principal.
//
// Resolution fails open: a missing, malformed, expired or forged token, or a
// token for a user that no longer exists, resolves to an anonymous (nil)
// principal instead of an error. Callers that need authentication enforce it
// through Authorize.
type IdentityResolver struct {
	tokens ports.TokenService
	users  ports.CredentialStore
	log    zerolog.Logger
}

func NewIdentityResolver(tokens ports.TokenService, users ports.CredentialStore, log zerolog.Logger) *IdentityResolver {
	return &IdentityResolver{tokens: tokens, users: users, log: log}
}

// Resolve returns the principal for authHeader, or nil when anonymous.
func (r *IdentityResolver) Resolve(ctx context.Context, authHeader string) *domain.Principal {
	token, ok := BearerToken(authHeader)
	if !ok {
		return nil
	}

	userID, err := r.tokens.Verify(token)
	if err != nil {
		// Fail-open branch: bad tokens are treated as anonymous.
		r.log.Debug().Err(err).Msg("invalid token, continuing anonymously")
		return nil
	}

	user, err := r.users.FindByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			r.log.Warn().Err(err).Str("user_id", userID).Msg("user lookup failed, continuing anonymously")
		}
		return nil
	}
	return user.Principal()
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header value. The scheme is matched case-insensitively.
func BearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
