package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/DanialSobri/api-studio/internal/auth"
)

// sessionResponse is one entry of GET /api/auth/sessions.
type sessionResponse struct {
	SessionID    string    `json:"session_id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActiveAt time.Time `json:"last_active_at"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	IsActive     bool      `json:"is_active"`
}

// handleListSessions lists the caller's sessions, or another user's when
// ?user_id= is given and the caller is an admin.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	var target *int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "user_id must be an integer")
			return
		}
		target = &id
	}

	sessions, err := s.auth.Sessions().ListSessions(r.Context(), userFromContext(r.Context()), target)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	out := make([]sessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, toSessionResponse(sess))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleRevokeSession revokes one session. The caller must own it or be an
// admin; an unknown session id is 404 regardless of the caller's role.
func (s *Server) handleRevokeSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "session_id")
	caller := userFromContext(r.Context())

	if err := s.auth.Sessions().RevokeSessionAs(r.Context(), caller, sessionID); err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "session revoked")
}

func toSessionResponse(sess auth.Session) sessionResponse {
	return sessionResponse{
		SessionID:    sess.SessionID,
		CreatedAt:    sess.CreatedAt,
		LastActiveAt: sess.LastActiveAt,
		IPAddress:    sess.IPAddress,
		UserAgent:    sess.UserAgent,
		IsActive:     sess.IsActive,
	}
}
