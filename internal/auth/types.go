package auth

import (
	"errors"
	"time"
)

// Role is a user's global role. It is a separate plane from project roles:
// admin widens session listing and revocation, nothing else.
type Role string

const (
	// RoleUser is the role every registered account starts with.
	RoleUser Role = "user"

	// RoleAdmin may list and revoke any user's sessions and read the audit log.
	// It grants no access to projects.
	RoleAdmin Role = "admin"
)

// IsValidRole reports whether r is a known global role.
func IsValidRole(r Role) bool {
	return r == RoleUser || r == RoleAdmin
}

// User represents an account that can log in.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	FullName     *string   `json:"full_name"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user holds the global admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// Session is the server-side record of one successful login. It can be
// revoked independently of the bearer token that references it.
//
// Active → Revoked is the only transition; a revoked session stays revoked.
type Session struct {
	ID           int64     `json:"-"`
	SessionID    string    `json:"session_id"`
	UserID       int64     `json:"user_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	IPAddress    string    `json:"ip_address,omitempty"`
	UserAgent    string    `json:"user_agent,omitempty"`
	IsActive     bool      `json:"is_active"`
}

// ClientInfo describes where a request came from. It is stored on sessions
// and audit rows.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// Sentinel errors for auth operations.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("inactive user")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrInvalidPassword    = errors.New("password must not be empty")
	ErrTokenInvalid       = errors.New("invalid token")
	ErrSessionInvalid     = errors.New("session invalid or expired")
	ErrSessionNotFound    = errors.New("session not found")
	ErrForbidden          = errors.New("not authorized")
)
