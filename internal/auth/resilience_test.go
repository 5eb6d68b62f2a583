package auth

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

// Resilience tests verify that the auth subsystem handles failure scenarios
// gracefully. These tests use the TestResilience_ prefix for easy filtering:
//
//	go test -run TestResilience -race ./internal/auth/...

// TestResilience_TouchFailureDoesNotFailValidation verifies that a store
// error while bumping last_active_at is logged and swallowed.
func TestResilience_TouchFailureDoesNotFailValidation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT " + sessionColumns + " FROM sessions WHERE session_id = ? AND user_id = ? AND is_active = 1")).
		WithArgs("sess-1", int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "session_id", "user_id", "created_at", "last_active_at", "ip_address", "user_agent", "is_active",
		}).AddRow(int64(1), "sess-1", int64(7), "2026-03-01T12:00:00Z", "2026-03-01T12:00:00Z", nil, nil, int64(1)))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions SET last_active_at = ?")).
		WillReturnError(errors.New("disk I/O error"))

	m := NewSessionManager(NewSessionRepository(db), nil)
	s, err := m.ValidateSession(context.Background(), "sess-1", 7)
	if err != nil {
		t.Fatalf("ValidateSession() error = %v, want nil despite touch failure", err)
	}
	if s.SessionID != "sess-1" || s.UserID != 7 {
		t.Errorf("session = %+v, want sess-1 of user 7", s)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestResilience_StoreErrorIsNotSessionInvalid verifies that a failing
// lookup surfaces as a store error, not as a revoked session.
func TestResilience_StoreErrorIsNotSessionInvalid(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT .* FROM sessions").WillReturnError(errors.New("database is locked"))

	m := NewSessionManager(NewSessionRepository(db), nil)
	_, err = m.ValidateSession(context.Background(), "sess-1", 7)
	if err == nil || errors.Is(err, ErrSessionInvalid) {
		t.Errorf("ValidateSession() error = %v, want a store error", err)
	}
}

// TestResilience_ConcurrentRevoke verifies that when many requests revoke
// the same session at once exactly one of them performs the transition.
func TestResilience_ConcurrentRevoke(t *testing.T) {
	db := testDB(t)
	rec := &fakeAudit{}
	m := NewSessionManager(NewSessionRepository(db), nil)
	m.SetNotifier(rec)
	user := seedTestUser(t, db, "race@example.com", RoleUser)

	s, err := m.CreateSession(context.Background(), user.ID, ClientInfo{})
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			revoked, err := m.RevokeSession(context.Background(), s.SessionID)
			if err != nil {
				t.Errorf("RevokeSession() error = %v", err)
			}
			results <- revoked
		}()
	}
	wg.Wait()
	close(results)

	wins := 0
	for r := range results {
		if r {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("%d goroutines revoked the session, want exactly 1", wins)
	}
	if n := len(rec.kinds()); n != 1 {
		t.Errorf("notifier saw %d revocations, want 1", n)
	}
}

// TestResilience_LoginWithoutAudit verifies the authenticator works with no
// audit recorder configured.
func TestResilience_LoginWithoutAudit(t *testing.T) {
	db := testDB(t)
	seedTestUser(t, db, "solo@example.com", RoleUser)

	a, err := NewAuthenticator(AuthenticatorDeps{
		Users:    NewUserRepository(db),
		Sessions: NewSessionManager(NewSessionRepository(db), nil),
		Hasher:   testHasher(),
		Tokens:   NewTokenCodec(testSecret),
		TokenTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewAuthenticator() error = %v", err)
	}

	res, err := a.Login(context.Background(), "solo@example.com", "test-password", ClientInfo{})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if err := a.Logout(context.Background(), res.User.ID, res.Session.SessionID); err != nil {
		t.Errorf("Logout() error = %v", err)
	}
}
