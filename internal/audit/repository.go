// Package audit records authentication events in the auth_audit table and
// forwards them to observability sinks.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// Kind is the type of an authentication event.
type Kind string

// Event kinds. Only login and failed_login create rows; logout back-fills
// the matching login row and session_revoked is published to sinks only.
const (
	KindLogin          Kind = "login"
	KindFailedLogin    Kind = "failed_login"
	KindLogout         Kind = "logout"
	KindSessionRevoked Kind = "session_revoked"
)

// Event is a single auth_audit row or, for logout and session_revoked, the
// notification handed to sinks.
type Event struct {
	ID              int64      `json:"id,omitempty"`
	UserID          *int64     `json:"user_id"`
	Kind            Kind       `json:"event"`
	IPAddress       string     `json:"ip_address,omitempty"`
	UserAgent       string     `json:"user_agent,omitempty"`
	SessionID       string     `json:"session_id,omitempty"`
	Timestamp       time.Time  `json:"timestamp"`
	LogoutTimestamp *time.Time `json:"logout_timestamp,omitempty"`
}

// Filter controls which audit events to return.
type Filter struct {
	UserID *int64 // optional
	Kind   Kind   // optional: login or failed_login
	Limit  int    // default 50, max 200
	Offset int    // pagination offset
}

// ListResult contains the paginated audit results.
type ListResult struct {
	Events []Event `json:"events"`
	Total  int     `json:"total"`
	Limit  int     `json:"limit"`
	Offset int     `json:"offset"`
}

// Repository defines the interface for audit persistence.
type Repository interface {
	Create(ctx context.Context, ev *Event) error
	CloseLatestLogin(ctx context.Context, userID int64, at time.Time) (bool, error)
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

const (
	defaultLimit = 50
	maxLimit     = 200
)

// SQLiteRepository stores audit events in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new audit repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create appends an event. ID is set from the insert; Timestamp defaults to now.
func (r *SQLiteRepository) Create(ctx context.Context, ev *Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.Timestamp = ev.Timestamp.UTC().Truncate(time.Second)

	result, err := r.db.ExecContext(ctx,
		`INSERT INTO auth_audit (user_id, event, ip_address, user_agent, timestamp)
		 VALUES (?, ?, ?, ?, ?)`,
		nullableInt(ev.UserID), string(ev.Kind),
		nullableString(ev.IPAddress), nullableString(ev.UserAgent),
		ev.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting audit event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading audit event id: %w", err)
	}
	ev.ID = id
	return nil
}

// CloseLatestLogin stamps logout_timestamp on the user's most recent login
// row that is still open. It reports false when there is none.
func (r *SQLiteRepository) CloseLatestLogin(ctx context.Context, userID int64, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE auth_audit SET logout_timestamp = ?
		 WHERE id = (
			SELECT id FROM auth_audit
			WHERE user_id = ? AND event = ? AND logout_timestamp IS NULL
			ORDER BY timestamp DESC, id DESC
			LIMIT 1
		 )`,
		at.UTC().Format(time.RFC3339), userID, string(KindLogin),
	)
	if err != nil {
		return false, fmt.Errorf("back-filling logout: %w", err)
	}
	rows, _ := result.RowsAffected() //nolint:errcheck // always succeeds on SQLite
	return rows > 0, nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// List returns audit events matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *filter.UserID)
	}
	if filter.Kind != "" {
		conditions = append(conditions, "event = ?")
		args = append(args, string(filter.Kind))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM auth_audit %s", where) //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit events: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		"SELECT id, user_id, event, ip_address, user_agent, timestamp, logout_timestamp FROM auth_audit %s ORDER BY timestamp DESC, id DESC LIMIT ? OFFSET ?",
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit events: %w", err)
	}

	return &ListResult{
		Events: events,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func scanEvent(rows *sql.Rows) (Event, error) {
	var ev Event
	var userID sql.NullInt64
	var kind, ts string
	var ip, ua, logoutTS sql.NullString

	if err := rows.Scan(&ev.ID, &userID, &kind, &ip, &ua, &ts, &logoutTS); err != nil {
		return ev, fmt.Errorf("scanning audit event: %w", err)
	}

	ev.Kind = Kind(kind)
	ev.IPAddress = ip.String
	ev.UserAgent = ua.String
	if userID.Valid {
		id := userID.Int64
		ev.UserID = &id
	}

	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ev, fmt.Errorf("parsing audit timestamp %q: %w", ts, err)
	}
	ev.Timestamp = t

	if logoutTS.Valid {
		lt, err := time.Parse(time.RFC3339, logoutTS.String)
		if err != nil {
			return ev, fmt.Errorf("parsing logout timestamp %q: %w", logoutTS.String, err)
		}
		ev.LogoutTimestamp = &lt
	}
	return ev, nil
}
