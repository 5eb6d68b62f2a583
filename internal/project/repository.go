package project

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/DanialSobri/api-studio/internal/infrastructure/database"
)

// Directory defines project and role-assignment persistence.
type Directory interface {
	Create(ctx context.Context, ownerID int64, name string, description *string) (*Project, error)
	Get(ctx context.Context, id int64) (*Project, error)
	ListForUser(ctx context.Context, userID int64) ([]Project, error)
	Update(ctx context.Context, id int64, patch Patch) (*Project, error)
	Delete(ctx context.Context, id int64) error
	SetRole(ctx context.Context, projectID, userID int64, role Role) (*Assignment, error)
	RemoveRole(ctx context.Context, projectID, userID int64) error
	Exists(ctx context.Context, id int64) (bool, error)
	RoleReader
}

// SQLiteDirectory implements Directory using SQLite.
type SQLiteDirectory struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteDirectory creates a new SQLite-backed project directory.
func NewSQLiteDirectory(db *sql.DB) *SQLiteDirectory {
	return &SQLiteDirectory{db: db, now: time.Now}
}

func (d *SQLiteDirectory) timestamp() string {
	return d.now().UTC().Format(time.RFC3339)
}

// Create inserts a project and makes ownerID its owner in one transaction.
func (d *SQLiteDirectory) Create(ctx context.Context, ownerID int64, name string, description *string) (*Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}

	now := d.timestamp()
	var id int64
	err := database.WithTx(ctx, d.db, func(tx *sql.Tx) error {
		if err := requireUser(ctx, tx, ownerID); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx,
			"INSERT INTO projects (name, description, created_at, updated_at) VALUES (?, ?, ?, ?)",
			name, description, now, now)
		if err != nil {
			return fmt.Errorf("inserting project: %w", err)
		}
		if id, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("reading project id: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO project_user_roles (user_id, project_id, role) VALUES (?, ?, ?)",
			ownerID, id, string(RoleOwner)); err != nil {
			return fmt.Errorf("assigning owner: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d.Get(ctx, id)
}

// Get returns a project with its member assignments.
func (d *SQLiteDirectory) Get(ctx context.Context, id int64) (*Project, error) {
	var p Project
	var desc sql.NullString
	var createdAt, updatedAt string

	err := d.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at, updated_at FROM projects WHERE id = ?", id,
	).Scan(&p.ID, &p.Name, &desc, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("getting project: %w", err)
	}
	fillProject(&p, desc, createdAt, updatedAt)

	members, err := d.members(ctx, []int64{p.ID})
	if err != nil {
		return nil, err
	}
	p.Users = members[p.ID]
	if p.Users == nil {
		p.Users = []Assignment{}
	}
	return &p, nil
}

// ListForUser returns the projects where userID holds any role, oldest first.
func (d *SQLiteDirectory) ListForUser(ctx context.Context, userID int64) ([]Project, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT p.id, p.name, p.description, p.created_at, p.updated_at
		 FROM projects p
		 JOIN project_user_roles r ON r.project_id = p.id
		 WHERE r.user_id = ?
		 ORDER BY p.created_at ASC, p.id ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	defer rows.Close()

	projects := []Project{}
	var ids []int64
	for rows.Next() {
		var p Project
		var desc sql.NullString
		var createdAt, updatedAt string
		if err := rows.Scan(&p.ID, &p.Name, &desc, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning project: %w", err)
		}
		fillProject(&p, desc, createdAt, updatedAt)
		projects = append(projects, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating projects: %w", err)
	}

	members, err := d.members(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range projects {
		projects[i].Users = members[projects[i].ID]
		if projects[i].Users == nil {
			projects[i].Users = []Assignment{}
		}
	}
	return projects, nil
}

// Update applies patch and bumps updated_at.
func (d *SQLiteDirectory) Update(ctx context.Context, id int64, patch Patch) (*Project, error) {
	sets := []string{"updated_at = ?"}
	args := []any{d.timestamp()}

	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, ErrInvalidName
		}
		sets = append(sets, "name = ?")
		args = append(args, name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	args = append(args, id)

	query := "UPDATE projects SET " + strings.Join(sets, ", ") + " WHERE id = ?" //nolint:gosec // column list is fixed, values are parameters
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("updating project: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
		return nil, ErrProjectNotFound
	}
	return d.Get(ctx, id)
}

// Delete removes a project and all of its role assignments atomically.
func (d *SQLiteDirectory) Delete(ctx context.Context, id int64) error {
	return database.WithTx(ctx, d.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM project_user_roles WHERE project_id = ?", id); err != nil {
			return fmt.Errorf("deleting role assignments: %w", err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting project: %w", err)
		}
		if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
			return ErrProjectNotFound
		}
		return nil
	})
}

// SetRole grants or changes userID's role on projectID.
func (d *SQLiteDirectory) SetRole(ctx context.Context, projectID, userID int64, role Role) (*Assignment, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	err := database.WithTx(ctx, d.db, func(tx *sql.Tx) error {
		if err := requireProject(ctx, tx, projectID); err != nil {
			return err
		}
		if err := requireUser(ctx, tx, userID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project_user_roles (user_id, project_id, role) VALUES (?, ?, ?)
			 ON CONFLICT (user_id, project_id) DO UPDATE SET role = excluded.role`,
			userID, projectID, string(role)); err != nil {
			return fmt.Errorf("upserting role: %w", err)
		}
		_, err := tx.ExecContext(ctx, "UPDATE projects SET updated_at = ? WHERE id = ?", d.timestamp(), projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &Assignment{UserID: userID, ProjectID: projectID, Role: role}, nil
}

// RemoveRole deletes userID's assignment on projectID.
func (d *SQLiteDirectory) RemoveRole(ctx context.Context, projectID, userID int64) error {
	result, err := d.db.ExecContext(ctx,
		"DELETE FROM project_user_roles WHERE project_id = ? AND user_id = ?", projectID, userID)
	if err != nil {
		return fmt.Errorf("removing role: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 { //nolint:errcheck // always succeeds on SQLite
		return ErrAssignmentNotFound
	}
	return nil
}

// RoleOf returns userID's role on projectID; ok is false when there is none.
func (d *SQLiteDirectory) RoleOf(ctx context.Context, userID, projectID int64) (Role, bool, error) {
	var role string
	err := d.db.QueryRowContext(ctx,
		"SELECT role FROM project_user_roles WHERE user_id = ? AND project_id = ?", userID, projectID,
	).Scan(&role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading role: %w", err)
	}
	return Role(role), true, nil
}

// Exists reports whether a project with id exists.
func (d *SQLiteDirectory) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := d.db.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking project: %w", err)
	}
	return true, nil
}

// members loads the assignments of the given projects keyed by project id.
func (d *SQLiteDirectory) members(ctx context.Context, ids []int64) (map[int64][]Assignment, error) {
	out := make(map[int64][]Assignment, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := d.db.QueryContext(ctx, //nolint:gosec // placeholders only
		`SELECT r.project_id, r.user_id, r.role, u.email, u.full_name
		 FROM project_user_roles r
		 JOIN users u ON u.id = r.user_id
		 WHERE r.project_id IN (`+placeholders+`)
		 ORDER BY r.project_id, r.user_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a Assignment
		var m Member
		var role string
		var fullName sql.NullString
		if err := rows.Scan(&a.ProjectID, &a.UserID, &role, &m.Email, &fullName); err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		a.Role = Role(role)
		m.ID = a.UserID
		if fullName.Valid {
			m.FullName = &fullName.String
		}
		a.User = &m
		out[a.ProjectID] = append(out[a.ProjectID], a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}
	return out, nil
}

func requireUser(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	return nil
}

func requireProject(ctx context.Context, tx *sql.Tx, id int64) error {
	var one int
	err := tx.QueryRowContext(ctx, "SELECT 1 FROM projects WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrProjectNotFound
	}
	if err != nil {
		return fmt.Errorf("checking project: %w", err)
	}
	return nil
}

func fillProject(p *Project, desc sql.NullString, createdAt, updatedAt string) {
	if desc.Valid {
		p.Description = &desc.String
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt) //nolint:errcheck // format is controlled
	p.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt) //nolint:errcheck // format is controlled
}
