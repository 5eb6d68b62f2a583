package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DanialSobri/api-studio/internal/infrastructure/config"
	"github.com/DanialSobri/api-studio/internal/infrastructure/database"
	"github.com/DanialSobri/api-studio/migrations"
)

// testDB opens a temporary SQLite database with all migrations applied.
// The database is closed when the test completes.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "auth-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	return db.DB
}

// testHasher returns an argon2id hasher with cheap parameters so tests
// stay fast.
func testHasher() *PasswordHasher {
	return NewPasswordHasher(config.PasswordConfig{
		Algorithm: AlgorithmArgon2id,
		Argon2: config.Argon2Config{
			Memory:      1024,
			Iterations:  1,
			Parallelism: 1,
			SaltLength:  16,
			KeyLength:   32,
		},
		BcryptCost: 4,
	})
}

const testSecret = "test-secret-key-for-jwt-signing-32b"

// seedTestUser inserts an active user with password "test-password".
func seedTestUser(t *testing.T, db *sql.DB, email string, role Role) *User {
	t.Helper()

	hash, err := testHasher().Hash("test-password")
	if err != nil {
		t.Fatalf("hashing password: %v", err)
	}

	user := &User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := NewUserRepository(db).Create(context.Background(), user); err != nil {
		t.Fatalf("creating test user %s: %v", email, err)
	}
	return user
}

// recordedEvent is one call captured by fakeAudit.
type recordedEvent struct {
	kind      string
	userID    *int64
	sessionID string
	ip        string
}

// fakeAudit captures audit calls in memory.
type fakeAudit struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeAudit) add(e recordedEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
}

func (f *fakeAudit) RecordLogin(_ context.Context, userID int64, ip, _ string) {
	f.add(recordedEvent{kind: "login", userID: &userID, ip: ip})
}

func (f *fakeAudit) RecordFailedLogin(_ context.Context, userID *int64, ip, _ string) {
	f.add(recordedEvent{kind: "failed_login", userID: userID, ip: ip})
}

func (f *fakeAudit) RecordLogout(_ context.Context, userID int64) {
	f.add(recordedEvent{kind: "logout", userID: &userID})
}

func (f *fakeAudit) RecordSessionRevoked(_ context.Context, userID int64, sessionID string) {
	f.add(recordedEvent{kind: "session_revoked", userID: &userID, sessionID: sessionID})
}

func (f *fakeAudit) kinds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.kind
	}
	return out
}

// newTestAuthenticator wires an Authenticator over a fresh database.
func newTestAuthenticator(t *testing.T) (*Authenticator, *sql.DB, *fakeAudit) {
	t.Helper()

	db := testDB(t)
	rec := &fakeAudit{}
	sessions := NewSessionManager(NewSessionRepository(db), nil)
	sessions.SetNotifier(rec)

	a, err := NewAuthenticator(AuthenticatorDeps{
		Users:    NewUserRepository(db),
		Sessions: sessions,
		Hasher:   testHasher(),
		Tokens:   NewTokenCodec(testSecret),
		Audit:    rec,
		TokenTTL: 60 * time.Minute,
	})
	if err != nil {
		t.Fatalf("NewAuthenticator() error = %v", err)
	}
	return a, db, rec
}
