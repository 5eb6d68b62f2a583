package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/DanialSobri/api-studio/internal/auth"
	"github.com/DanialSobri/api-studio/internal/project"
)

// Error is the body of every error response: {"error":{"code","message"}}.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error Error `json:"error"`
}

// Common error codes.
const (
	ErrCodeBadRequest      = "bad_request"
	ErrCodeNotFound        = "not_found"
	ErrCodeUnauthorized    = "unauthorised"
	ErrCodeForbidden       = "forbidden"
	ErrCodeConflict        = "conflict"
	ErrCodeInactive        = "inactive_user"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeInternal        = "internal_error"
	ErrCodeValidation      = "validation_error"
	ErrCodeSessionInvalid  = "session_invalid"
	ErrCodeTokenInvalid    = "invalid_token"
	ErrCodeBadCredentials  = "invalid_credentials"
	ErrCodeUnavailable     = "unavailable"
	ErrCodeMethodNotAllow  = "method_not_allowed"
	ErrCodeUnknownEndpoint = "unknown_endpoint"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorEnvelope{Error: Error{Code: code, Message: message}})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, ErrCodeForbidden, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeMessage writes the {"msg": ...} acknowledgement used by mutating
// auth endpoints.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

// writeDomainError maps a sentinel error from the auth or project packages
// to its HTTP status. Anything unrecognised is logged and reported as 500
// without leaking the cause.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, ErrCodeBadCredentials, "invalid email or password")
	case errors.Is(err, auth.ErrTokenInvalid):
		writeError(w, http.StatusUnauthorized, ErrCodeTokenInvalid, "invalid token")
	case errors.Is(err, auth.ErrSessionInvalid):
		writeError(w, http.StatusUnauthorized, ErrCodeSessionInvalid, auth.ErrSessionInvalid.Error())
	case errors.Is(err, auth.ErrUserInactive):
		writeError(w, http.StatusBadRequest, ErrCodeInactive, auth.ErrUserInactive.Error())
	case errors.Is(err, auth.ErrEmailExists):
		writeError(w, http.StatusBadRequest, ErrCodeConflict, "email already registered")
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrInvalidPassword):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, project.ErrUserNotFound):
		writeNotFound(w, "user not found")
	case errors.Is(err, auth.ErrSessionNotFound):
		writeNotFound(w, "session not found")
	case errors.Is(err, project.ErrProjectNotFound):
		writeNotFound(w, "project not found")
	case errors.Is(err, project.ErrAssignmentNotFound):
		writeNotFound(w, "user is not assigned to this project")
	case errors.Is(err, auth.ErrForbidden):
		writeForbidden(w, "not authorized")
	case errors.Is(err, project.ErrInvalidRole), errors.Is(err, project.ErrInvalidName):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
	default:
		s.logger.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w, "internal server error")
	}
}
