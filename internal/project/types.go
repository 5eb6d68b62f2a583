package project

import (
	"errors"
	"time"
)

// Role is a user's role on one project.
type Role string

// Project roles, strongest first.
const (
	RoleOwner     Role = "owner"
	RoleDeveloper Role = "developer"
	RoleViewer    Role = "viewer"
)

// Required levels for project operations.
const (
	LevelRead             = RoleViewer
	LevelUpdate           = RoleDeveloper
	LevelDelete           = RoleOwner
	LevelManageMembership = RoleOwner
)

// Rank orders roles; unknown roles rank 0.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleDeveloper:
		return 2
	case RoleViewer:
		return 1
	default:
		return 0
	}
}

// Valid reports whether r is one of the three project roles.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

// Project is a unit of shared work.
type Project struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description *string      `json:"description"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
	Users       []Assignment `json:"users"`
}

// Member is the public profile attached to an assignment.
type Member struct {
	ID       int64   `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
}

// Assignment binds one user to one project with one role.
type Assignment struct {
	UserID    int64   `json:"user_id"`
	ProjectID int64   `json:"project_id"`
	Role      Role    `json:"role"`
	User      *Member `json:"user,omitempty"`
}

// Patch holds the optional fields of an update. Nil fields are unchanged.
type Patch struct {
	Name        *string
	Description *string
}

// Sentinel errors for project operations.
var (
	ErrProjectNotFound    = errors.New("project not found")
	ErrAssignmentNotFound = errors.New("role assignment not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid project role")
	ErrInvalidName        = errors.New("project name must not be empty")
)
