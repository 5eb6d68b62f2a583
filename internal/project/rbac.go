package project

import (
	"context"
	"fmt"
)

// RoleReader is the read side the Evaluator needs.
type RoleReader interface {
	RoleOf(ctx context.Context, userID, projectID int64) (Role, bool, error)
}

// Evaluator answers "may this user do this to that project". It holds no
// state of its own and re-reads the assignment on every call.
type Evaluator struct {
	roles RoleReader
}

// NewEvaluator creates an Evaluator reading assignments from roles.
func NewEvaluator(roles RoleReader) *Evaluator {
	return &Evaluator{roles: roles}
}

// RoleOf returns the user's role on the project; ok is false for none.
func (e *Evaluator) RoleOf(ctx context.Context, userID, projectID int64) (Role, bool, error) {
	role, ok, err := e.roles.RoleOf(ctx, userID, projectID)
	if err != nil {
		return "", false, fmt.Errorf("resolving project role: %w", err)
	}
	return role, ok, nil
}

// Authorize reports whether the user's role on the project is at least
// required. A user with no role is never authorized.
func (e *Evaluator) Authorize(ctx context.Context, userID, projectID int64, required Role) (bool, error) {
	if !required.Valid() {
		return false, ErrInvalidRole
	}
	role, ok, err := e.RoleOf(ctx, userID, projectID)
	if err != nil || !ok {
		return false, err
	}
	return role.Rank() >= required.Rank(), nil
}
