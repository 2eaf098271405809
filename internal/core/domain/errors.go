package domain

import "errors"

var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrForbidden          = errors.New("not authorized")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid token")
	ErrValidation         = errors.New("validation failed")
	ErrRequestInProgress  = errors.New("a request with this idempotency key is already in progress")
)

// ErrUserExists is the registration conflict. It is a ValidationError, so
// errors.Is(err, ErrValidation) also holds for it.
var ErrUserExists = &ValidationError{Field: "email", Reason: "user already exists"}

// ValidationError reports a bad or missing input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Reason
}

// Is lets callers match any ValidationError against ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
