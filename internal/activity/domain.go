// Package activity provides the append-only audit trail. Records are written
// by the auth and account flows and read back only to feed dashboard
// statistics, never for authorization decisions.
package activity

import "time"

// Actions recorded in the audit trail.
const (
	ActionRegister       = "register"
	ActionLogin          = "login"
	ActionLogout         = "logout"
	ActionCreateUser     = "create_user"
	ActionUpdateUser     = "update_user"
	ActionDeleteUser     = "delete_user"
	ActionChangePassword = "change_password"
)

// Record is a single audit entry.
type Record struct {
	Action      string
	AccountID   string
	Description string
	Metadata    map[string]any
	IP          string
	UserAgent   string
}

// Entry is a stored audit entry including the actor's display name, as read
// back for the recent-activity feed.
type Entry struct {
	ID          string
	Action      string
	Description string
	AccountID   string
	ActorName   string
	CreatedAt   time.Time
}
