package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// RevocationNotifier is told about every session the manager revokes.
// It must not block or fail the caller.
type RevocationNotifier interface {
	RecordSessionRevoked(ctx context.Context, userID int64, sessionID string)
}

// SessionManager owns the session lifecycle: create, validate (with touch),
// revoke and enumerate.
//
// Nothing is cached; every call reads the store, so a revocation is visible
// to the next request that validates the same session.
type SessionManager struct {
	repo     SessionRepository
	notifier RevocationNotifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewSessionManager creates a session manager over repo. logger may be nil.
func NewSessionManager(repo SessionRepository, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &SessionManager{
		repo:   repo,
		logger: logger.With("component", "sessions"),
		now:    time.Now,
	}
}

// SetNotifier registers the collaborator told about revocations.
func (m *SessionManager) SetNotifier(n RevocationNotifier) {
	m.notifier = n
}

// CreateSession starts a new active session for userID with a random
// UUIDv4 session id.
func (m *SessionManager) CreateSession(ctx context.Context, userID int64, client ClientInfo) (*Session, error) {
	s := &Session{
		SessionID: uuid.NewString(),
		UserID:    userID,
		CreatedAt: m.now(),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}
	if err := m.repo.Create(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// ValidateSession returns the session if it belongs to userID and is still
// active, otherwise ErrSessionInvalid. On success last_active_at is bumped;
// a failed touch is logged and does not fail validation.
func (m *SessionManager) ValidateSession(ctx context.Context, sessionID string, userID int64) (*Session, error) {
	s, err := m.repo.GetActive(ctx, sessionID, userID)
	if err != nil {
		return nil, err
	}

	now := m.now()
	if err := m.repo.Touch(ctx, sessionID, now); err != nil {
		m.logger.Warn("session touch failed", "session_id", sessionID, "error", err)
		return s, nil
	}
	s.LastActiveAt = now.UTC().Truncate(time.Second)
	return s, nil
}

// RevokeSession deactivates a session for good. It reports false, with no
// error, when the session is unknown or was already revoked.
func (m *SessionManager) RevokeSession(ctx context.Context, sessionID string) (bool, error) {
	s, err := m.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return false, nil
		}
		return false, err
	}

	revoked, err := m.repo.Revoke(ctx, sessionID, m.now())
	if err != nil {
		return false, err
	}
	if revoked {
		m.logger.Info("session revoked", "session_id", sessionID, "user_id", s.UserID)
		if m.notifier != nil {
			m.notifier.RecordSessionRevoked(ctx, s.UserID, sessionID)
		}
	}
	return revoked, nil
}

// RevokeSessionAs revokes sessionID on behalf of caller, who must own the
// session or be a global admin. Revoking an already-revoked session the
// caller may act on is not an error.
func (m *SessionManager) RevokeSessionAs(ctx context.Context, caller *User, sessionID string) error {
	s, err := m.repo.GetBySessionID(ctx, sessionID)
	if err != nil {
		return err
	}
	if !CanManageSession(caller, s.UserID) {
		return ErrForbidden
	}
	if _, err := m.RevokeSession(ctx, sessionID); err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}
	return nil
}

// ListSessions returns every session, active or revoked, of the caller or,
// when target is non-nil, of the target user. Only admins may name a target.
func (m *SessionManager) ListSessions(ctx context.Context, caller *User, target *int64) ([]Session, error) {
	userID := caller.ID
	if target != nil {
		if !HasPermission(caller.Role, PermSessionViewAny) {
			return nil, ErrForbidden
		}
		userID = *target
	}
	return m.repo.ListByUser(ctx, userID)
}
