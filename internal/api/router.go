package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// healthProbeTimeout bounds each dependency check in /api/health.
const healthProbeTimeout = 3 * time.Second

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.metricsMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, ErrCodeUnknownEndpoint, "endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllow, "method not allowed")
	})

	// Operational endpoints (no auth required)
	r.Get("/live", s.handleLive)
	r.Get("/api/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)

		// WebSocket (auth via single-use ticket, validated in handler)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/logout", s.handleLogout)
			r.Get("/me", s.handleMe)
			r.Get("/sessions", s.handleListSessions)
			r.Post("/sessions/{session_id}/revoke", s.handleRevokeSession)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAdmin)

				r.Get("/audit", s.handleListAudit)
				r.Post("/ws/ticket", s.handleWSTicket)
			})
		})
	})

	r.Route("/api/projects", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Post("/", s.handleCreateProject)
		r.Get("/", s.handleListProjects)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetProject)
			r.Put("/", s.handleUpdateProject)
			r.Delete("/", s.handleDeleteProject)
			r.Post("/users", s.handleAssignRole)
			r.Delete("/users/{user_id}", s.handleRemoveMember)
		})
	})

	return r
}

// handleLive reports that the process is serving requests. It never
// touches dependencies.
func (s *Server) handleLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleHealth runs every dependency probe concurrently and reports each
// result. Any failing probe makes the response 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	results := make(map[string]string, len(s.probes))
	var mu sync.Mutex

	var g errgroup.Group
	for _, p := range s.probes {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
			defer cancel()

			status := "ok"
			err := p.Check(ctx)
			if err != nil {
				status = err.Error()
			}

			mu.Lock()
			results[p.Name] = status
			mu.Unlock()
			return err
		})
	}
	err := g.Wait()

	code, status := http.StatusOK, "ok"
	if err != nil {
		code, status = http.StatusServiceUnavailable, "degraded"
		s.logger.Warn("health check failed", "error", err)
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"version": s.version,
		"checks":  results,
	})
}
