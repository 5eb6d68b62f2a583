package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SessionRepository defines the interface for session persistence.
// Rows are never deleted; revocation is a guarded update.
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	GetBySessionID(ctx context.Context, sessionID string) (*Session, error)
	GetActive(ctx context.Context, sessionID string, userID int64) (*Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Revoke(ctx context.Context, sessionID string, at time.Time) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]Session, error)
}

// SQLiteSessionRepository implements SessionRepository using SQLite.
type SQLiteSessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new SQLite-backed session repository.
func NewSessionRepository(db *sql.DB) *SQLiteSessionRepository {
	return &SQLiteSessionRepository{db: db}
}

const sessionColumns = "id, session_id, user_id, created_at, last_active_at, ip_address, user_agent, is_active"

// Create inserts an active session row. The caller supplies SessionID.
func (r *SQLiteSessionRepository) Create(ctx context.Context, s *Session) error {
	if s.SessionID == "" {
		return fmt.Errorf("creating session: session id is required")
	}

	now := formatTime(s.CreatedAt)
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO sessions (session_id, user_id, created_at, last_active_at, ip_address, user_agent, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, 1)`,
		s.SessionID, s.UserID, now, now, nullString(s.IPAddress), nullString(s.UserAgent),
	)
	if err != nil {
		return fmt.Errorf("creating session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading session id: %w", err)
	}
	s.ID = id
	s.IsActive = true
	s.CreatedAt, _ = time.Parse(time.RFC3339, now) //nolint:errcheck // format is controlled
	s.LastActiveAt = s.CreatedAt
	return nil
}

// GetBySessionID returns the session regardless of its state.
func (r *SQLiteSessionRepository) GetBySessionID(ctx context.Context, sessionID string) (*Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE session_id = ?", sessionID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// GetActive returns the session only if it belongs to userID and is active.
func (r *SQLiteSessionRepository) GetActive(ctx context.Context, sessionID string, userID int64) (*Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE session_id = ? AND user_id = ? AND is_active = 1",
		sessionID, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionInvalid
	}
	return s, err
}

// Touch records activity on an active session.
func (r *SQLiteSessionRepository) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET last_active_at = ? WHERE session_id = ? AND is_active = 1",
		formatTime(at), sessionID)
	if err != nil {
		return fmt.Errorf("touching session: %w", err)
	}
	return nil
}

// Revoke deactivates an active session. It reports false when no active
// session matched, which covers both unknown and already-revoked ids.
func (r *SQLiteSessionRepository) Revoke(ctx context.Context, sessionID string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		"UPDATE sessions SET is_active = 0, last_active_at = ? WHERE session_id = ? AND is_active = 1",
		formatTime(at), sessionID)
	if err != nil {
		return false, fmt.Errorf("revoking session: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return rows > 0, nil
}

// ListByUser returns every session of a user, oldest first.
func (r *SQLiteSessionRepository) ListByUser(ctx context.Context, userID int64) ([]Session, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE user_id = ? ORDER BY created_at ASC, id ASC", userID)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

// scanSession returns sql.ErrNoRows unwrapped so callers can map it to the
// sentinel that fits their lookup.
func scanSession(s scanner) (*Session, error) {
	var sess Session
	var ip, ua sql.NullString
	var isActive int
	var createdAt, lastActiveAt string

	err := s.Scan(&sess.ID, &sess.SessionID, &sess.UserID, &createdAt, &lastActiveAt, &ip, &ua, &isActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}

	sess.IsActive = isActive != 0
	sess.IPAddress = ip.String
	sess.UserAgent = ua.String
	sess.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)       //nolint:errcheck // format is controlled
	sess.LastActiveAt, _ = time.Parse(time.RFC3339, lastActiveAt) //nolint:errcheck // format is controlled
	return &sess, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}
