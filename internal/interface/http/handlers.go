package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/examprep-hub/learner-engine/internal/application/command"
	"github.com/examprep-hub/learner-engine/internal/application/query"
	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"service": "learner-engine",
		"version": s.deps.Version,
		"uptime":  s.Uptime().String(),
	})
}

// handleLive answers liveness probes; the process is up if we got here.
func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "alive"})
}

// handleReady answers readiness probes by checking dependencies.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Health == nil {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
		return
	}

	checks := s.deps.Health.Check(r.Context())
	ready := true
	for _, ok := range checks {
		if !ok {
			ready = false
			break
		}
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, map[string]any{
		"ready":  ready,
		"checks": checks,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var checks map[string]bool
	if s.deps.Health != nil {
		checks = s.deps.Health.Check(r.Context())
	}

	healthy := true
	for _, ok := range checks {
		if !ok {
			healthy = false
			break
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, r, status, map[string]any{
		"healthy":    healthy,
		"checks":     checks,
		"checked_at": time.Now().UTC(),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SESSION HANDLERS
// ══════════════════════════════════════════════════════════════════════════════

// openSessionRequest is the body of POST /api/v1/sessions.
type openSessionRequest struct {
	LearnerID string `json:"learner_id"`
	Subject   string `json:"subject"`
}

// openSessionResponse is the body of a successful session open.
type openSessionResponse struct {
	SessionID string `json:"session_id"`
	Degraded  bool   `json:"degraded"`
}

// handleOpenSession opens a live session for a learner.
func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req openSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	result, err := s.deps.OpenSession.Handle(r.Context(), command.OpenSessionCommand{
		LearnerID: req.LearnerID,
		Subject:   req.Subject,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, openSessionResponse{
		SessionID: result.SessionID,
		Degraded:  result.Degraded,
	})
}

// handleProcessEvent feeds one learning event through the adaptation loop
// and returns the adaptive decision.
func (s *Server) handleProcessEvent(w http.ResponseWriter, r *http.Request) {
	sessionID := trimPathID(r, "id")
	if sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing_session_id", "session ID is required")
		return
	}

	var event session.LearningEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "request body must be valid JSON")
		return
	}

	decision, err := s.deps.ProcessEvent.Handle(r.Context(), command.ProcessEventCommand{
		SessionID: sessionID,
		Event:     event,
	})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, decision)
}

// handleGetSnapshot returns the session's current metric snapshot.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	sessionID := trimPathID(r, "id")
	if sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing_session_id", "session ID is required")
		return
	}

	snapshot, err := s.deps.GetSnapshot.Handle(query.GetSnapshotQuery{SessionID: sessionID})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, snapshot)
}

// handleGetProjection returns the predictive projection for a session.
func (s *Server) handleGetProjection(w http.ResponseWriter, r *http.Request) {
	sessionID := trimPathID(r, "id")
	if sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing_session_id", "session ID is required")
		return
	}

	projection, err := s.deps.GetProjection.Handle(query.GetProjectionQuery{SessionID: sessionID})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, projection)
}

// handleCloseSession finalizes a session and hands it to the archiver.
func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID := trimPathID(r, "id")
	if sessionID == "" {
		writeJSONError(w, http.StatusBadRequest, "missing_session_id", "session ID is required")
		return
	}

	err := s.deps.CloseSession.Handle(r.Context(), command.CloseSessionCommand{SessionID: sessionID})
	if err != nil {
		s.writeDomainError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]string{"session_id": sessionID, "status": "closed"})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// writeDomainError maps a domain error to an HTTP status.
func (s *Server) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case shared.IsNotFound(err):
		writeJSONError(w, http.StatusNotFound, "session_not_found", err.Error())
	case shared.IsClosed(err):
		writeJSONError(w, http.StatusConflict, "session_closed", err.Error())
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusBadRequest, "invalid_request", err.Error())
	default:
		s.logger.Error("request failed",
			"path", r.URL.Path,
			"request_id", getRequestID(r.Context()),
			"error", err)
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "request could not be processed")
	}
}
