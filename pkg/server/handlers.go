package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"mercator-hq/cwlens/pkg/controller"
	"mercator-hq/cwlens/pkg/session"
	"mercator-hq/cwlens/pkg/upstream"
	"mercator-hq/cwlens/pkg/window"
)

// maxBodyBytes caps control request bodies. Snapshots are the largest.
const maxBodyBytes = 4 << 20

// SessionRequest switches the session or, with an empty SessionID, the
// profile of the active session.
type SessionRequest struct {
	SessionID string `json:"session_id"`
	ProfileID string `json:"profile_id"`
}

// LimitRequest sets or clears the session context limit. A null
// ContextLimit clears the override.
type LimitRequest struct {
	ContextLimit *int `json:"context_limit"`
}

// SnapshotRequest delivers a snapshot. An empty SessionID targets the
// active session.
type SnapshotRequest struct {
	SessionID string           `json:"session_id"`
	Snapshot  *window.Snapshot `json:"snapshot"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.Status())
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	var req SessionRequest
	if !s.decode(w, r, &req) {
		return
	}

	var (
		st  *controller.Status
		err error
	)
	switch {
	case req.SessionID != "":
		st, err = s.backend.SwitchSession(r.Context(), req.SessionID, req.ProfileID)
	case req.ProfileID != "":
		st, err = s.backend.SelectProfile(r.Context(), req.ProfileID)
	default:
		writeError(w, http.StatusBadRequest, "invalid_request", "session_id or profile_id is required")
		return
	}
	s.respond(w, r, st, err)
}

func (s *Server) handleSessionLimit(w http.ResponseWriter, r *http.Request) {
	var req LimitRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.ContextLimit != nil && *req.ContextLimit <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_request", "context_limit must be positive or null")
		return
	}
	st, err := s.backend.SetSessionLimit(r.Context(), req.ContextLimit)
	s.respond(w, r, st, err)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var req SnapshotRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Snapshot == nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "snapshot is required")
		return
	}
	st, err := s.backend.HandleSnapshot(r.Context(), req.SessionID, req.Snapshot)
	s.respond(w, r, st, err)
}

// decode reads a JSON body into v, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// respond writes the status or maps err onto an HTTP error.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, st *controller.Status, err error) {
	if err == nil {
		writeJSON(w, http.StatusOK, st)
		return
	}

	code, kind := classify(err)
	if code >= http.StatusInternalServerError {
		s.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	} else {
		s.logger.DebugContext(r.Context(), "request rejected", "path", r.URL.Path, "error", err)
	}
	writeError(w, code, kind, err.Error())
}

func classify(err error) (int, string) {
	var apiErr *upstream.APIError
	switch {
	case errors.Is(err, controller.ErrNoSession):
		return http.StatusConflict, "no_session"
	case errors.Is(err, session.ErrNotConfigured):
		return http.StatusConflict, "not_configured"
	case errors.Is(err, controller.ErrSessionMismatch):
		return http.StatusConflict, "session_mismatch"
	case errors.Is(err, controller.ErrStale):
		return http.StatusConflict, "superseded"
	case errors.As(err, &apiErr):
		return http.StatusBadGateway, "upstream_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, ErrorResponse{Error: ErrorDetail{Message: message, Code: kind}})
}
