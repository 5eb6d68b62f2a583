package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/DanialSobri/api-studio/internal/audit"
	"github.com/DanialSobri/api-studio/internal/auth"
	"github.com/DanialSobri/api-studio/internal/infrastructure/config"
	"github.com/DanialSobri/api-studio/internal/infrastructure/database"
	"github.com/DanialSobri/api-studio/internal/infrastructure/logging"
	"github.com/DanialSobri/api-studio/internal/project"
	"github.com/DanialSobri/api-studio/migrations"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

// testEnv is a fully wired server over a temporary SQLite database.
type testEnv struct {
	srv     *Server
	handler http.Handler
	db      *sql.DB
	audit   *audit.SQLiteRepository
}

// testServer builds a Server with real repositories. opts may adjust Deps
// before New is called.
func testServer(t *testing.T, opts ...func(*Deps)) *testEnv {
	t.Helper()

	handle, err := database.Open(context.Background(), config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "api-test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { handle.Close() })
	if err := handle.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("applying migrations: %v", err)
	}
	db := handle.DB

	log := logging.Discard()

	auditRepo := audit.NewSQLiteRepository(db)
	auditLog := audit.NewLog(auditRepo, log.Logger)

	sessions := auth.NewSessionManager(auth.NewSessionRepository(db), log.Logger)
	sessions.SetNotifier(auditLog)

	authenticator, err := auth.NewAuthenticator(auth.AuthenticatorDeps{
		Users:    auth.NewUserRepository(db),
		Sessions: sessions,
		Hasher: auth.NewPasswordHasher(config.PasswordConfig{
			Algorithm: auth.AlgorithmArgon2id,
			Argon2: config.Argon2Config{
				Memory:      1024,
				Iterations:  1,
				Parallelism: 1,
				SaltLength:  16,
				KeyLength:   32,
			},
		}),
		Tokens:   auth.NewTokenCodec(testSecret),
		Audit:    auditLog,
		TokenTTL: 60 * time.Minute,
		Logger:   log.Logger,
	})
	if err != nil {
		t.Fatalf("NewAuthenticator() error: %v", err)
	}

	deps := Deps{
		Config: config.APIConfig{
			Host: "127.0.0.1",
			Port: 0,
			Timeouts: config.APITimeoutConfig{
				Read:  5,
				Write: 5,
				Idle:  5,
			},
		},
		WS: config.WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logger:    log,
		Auth:      authenticator,
		AuditRepo: auditRepo,
		AuditLog:  auditLog,
		Projects:  project.NewSQLiteDirectory(db),
		DB:        db,
		Version:   "test",
	}
	for _, opt := range opts {
		opt(&deps)
	}

	srv, err := New(deps)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go srv.hub.Run(ctx)

	return &testEnv{
		srv:     srv,
		handler: srv.buildRouter(),
		db:      db,
		audit:   auditRepo,
	}
}

// do sends a request through the router. body is JSON-encoded when non-nil.
func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encoding body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "api-test")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.handler.ServeHTTP(w, req)
	return w
}

// register creates an account and returns its id.
func (e *testEnv) register(t *testing.T, email string) int64 {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"email":    email,
		"password": "correct-horse",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body = %s", email, w.Code, w.Body.String())
	}

	var id int64
	if err := e.db.QueryRow("SELECT id FROM users WHERE email = ?", email).Scan(&id); err != nil {
		t.Fatalf("reading id of %s: %v", email, err)
	}
	return id
}

// registerAdmin creates an account and promotes it to the admin role.
func (e *testEnv) registerAdmin(t *testing.T, email string) int64 {
	t.Helper()

	id := e.register(t, email)
	if _, err := e.db.Exec("UPDATE users SET role = 'admin' WHERE id = ?", id); err != nil {
		t.Fatalf("promoting %s: %v", email, err)
	}
	return id
}

// login returns a bearer token for email.
func (e *testEnv) login(t *testing.T, email string) string {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{
		"email":    email,
		"password": "correct-horse",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status = %d, body = %s", email, w.Code, w.Body.String())
	}
	var resp loginResponse
	decode(t, w, &resp)
	return resp.AccessToken
}

// decode unmarshals the response body into v.
func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", w.Body.String(), err)
	}
}

// errorCode returns the machine code from an error envelope.
func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env errorEnvelope
	decode(t, w, &env)
	return env.Error.Code
}
