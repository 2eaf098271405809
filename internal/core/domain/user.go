package domain

import "time"

// Role is the closed set of user roles.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleMember || r == RoleAdmin
}

// User models a registered account.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Principal is the request-scoped identity of a caller. A nil *Principal means
// the caller is anonymous.
type Principal struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// IsAdmin reports whether p holds the admin role. Safe on a nil receiver.
func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Principal strips the credential hash from u.
func (u *User) Principal() *Principal {
	role := u.Role
	if !role.Valid() {
		role = RoleMember
	}
	return &Principal{ID: u.ID, Name: u.Name, Email: u.Email, Role: role}
}
