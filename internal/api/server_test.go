package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/DanialSobri/api-studio/internal/infrastructure/logging"
)

// ─── Lifecycle ──────────────────────────────────────────────────────

func TestNew_RequiresDependencies(t *testing.T) {
	env := testServer(t)

	tests := []struct {
		name   string
		mutate func(*Deps)
	}{
		{"logger", func(d *Deps) { d.Logger = nil }},
		{"auth", func(d *Deps) { d.Auth = nil }},
		{"audit", func(d *Deps) { d.AuditRepo = nil }},
		{"projects", func(d *Deps) { d.Projects = nil }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := Deps{
				Logger:    logging.Discard(),
				Auth:      env.srv.auth,
				AuditRepo: env.srv.auditRepo,
				Projects:  env.srv.projects,
			}
			tt.mutate(&deps)
			if _, err := New(deps); err == nil {
				t.Errorf("New() without %s: expected error", tt.name)
			}
		})
	}
}

func TestHealthCheck_NotStarted(t *testing.T) {
	env := testServer(t)
	if err := env.srv.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() before Start: expected error")
	}
	if err := env.srv.Close(); err != nil {
		t.Errorf("Close() before Start: %v", err)
	}
}

// ─── Operational Endpoints ──────────────────────────────────────────

func TestLive(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/live", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body map[string]any
	decode(t, w, &body)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("body = %v", body)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}
}

func TestHealth_ProbesRunAndReport(t *testing.T) {
	env := testServer(t, func(d *Deps) {
		d.Probes = []HealthProbe{
			{Name: "database", Check: func(context.Context) error { return nil }},
			{Name: "redis", Check: func(context.Context) error { return errors.New("connection refused") }},
		}
	})

	w := env.do(t, http.MethodGet, "/api/health", "", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	decode(t, w, &body)
	if body.Status != "degraded" {
		t.Errorf("status = %q, want degraded", body.Status)
	}
	if body.Checks["database"] != "ok" {
		t.Errorf("database check = %q, want ok", body.Checks["database"])
	}
	if body.Checks["redis"] != "connection refused" {
		t.Errorf("redis check = %q", body.Checks["redis"])
	}
}

func TestHealth_AllHealthy(t *testing.T) {
	env := testServer(t, func(d *Deps) {
		d.Probes = []HealthProbe{
			{Name: "database", Check: func(context.Context) error { return nil }},
		}
	})

	if w := env.do(t, http.MethodGet, "/api/health", "", nil); w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	env := testServer(t)

	env.do(t, http.MethodGet, "/live", "", nil)
	env.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "nobody@example.com", "password": "x"})

	w := env.do(t, http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	out := w.Body.String()
	for _, want := range []string{
		`apistudio_http_requests_total{method="GET",route="/live",status="200"} 1`,
		`apistudio_auth_events_total{event="failed_login",outcome="recorded"} 1`,
		"apistudio_websocket_clients 0",
		"go_goroutines",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

// ─── Routing & Middleware ───────────────────────────────────────────

func TestUnknownEndpoint(t *testing.T) {
	env := testServer(t)

	w := env.do(t, http.MethodGet, "/api/nothing-here", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodeUnknownEndpoint {
		t.Errorf("code = %q, want %q", code, ErrCodeUnknownEndpoint)
	}
}

func TestCORS(t *testing.T) {
	env := testServer(t, func(d *Deps) {
		d.Config.CORS.AllowedOrigins = []string{"https://studio.example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://studio.example.com")
	w := httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://studio.example.com" {
		t.Errorf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	env.handler.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("Allow-Origin for disallowed origin = %q, want empty", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	env := testServer(t)

	h := env.srv.recoveryMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodeInternal {
		t.Errorf("code = %q, want %q", code, ErrCodeInternal)
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Bearer abc", "abc"},
		{"bearer abc", "abc"},
		{"BEARER  abc ", "abc"},
		{"Basic abc", ""},
		{"Bearer", ""},
		{"", ""},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		if got := bearerToken(req); got != tt.want {
			t.Errorf("bearerToken(%q) = %q, want %q", tt.header, got, tt.want)
		}
	}
}

func TestRemoteIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:55123"
	if got := remoteIP(req); got != "203.0.113.9" {
		t.Errorf("remoteIP = %q", got)
	}
	req.RemoteAddr = "pipe"
	if got := remoteIP(req); got != "pipe" {
		t.Errorf("remoteIP without port = %q", got)
	}
}
