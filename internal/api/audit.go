package api

import (
	"net/http"
	"strconv"

	"github.com/DanialSobri/api-studio/internal/audit"
)

// handleListAudit returns persisted audit rows, newest first.
//
// Query parameters (all optional): user_id, event (login or failed_login),
// limit (default 50, max 200) and offset.
func (s *Server) handleListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter audit.Filter

	if raw := q.Get("user_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeBadRequest(w, "user_id must be an integer")
			return
		}
		filter.UserID = &id
	}

	if raw := q.Get("event"); raw != "" {
		kind := audit.Kind(raw)
		if kind != audit.KindLogin && kind != audit.KindFailedLogin {
			writeBadRequest(w, "event must be login or failed_login")
			return
		}
		filter.Kind = kind
	}

	for _, p := range []struct {
		name string
		dst  *int
	}{
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			writeBadRequest(w, p.name+" must be a non-negative integer")
			return
		}
		*p.dst = v
	}

	res, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
