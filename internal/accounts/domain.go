package accounts

import (
	"strings"
	"time"
)

// Role controls authorization checks. Roles are lowercase end-to-end: in the
// database, in token claims and on the wire.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// Account represents a persisted user identity with credentials and role.
// PasswordHash is never serialized or logged.
type Account struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	IsActive     bool
	Avatar       *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Status renders the active flag in its wire form.
func (a *Account) Status() string {
	if a.IsActive {
		return "active"
	}
	return "inactive"
}

// NormalizeEmail lowercases and trims an email so it can serve as the unique
// login key regardless of how the user typed it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
