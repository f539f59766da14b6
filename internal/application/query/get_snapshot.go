// Package query contains read operations (CQRS - Queries).
package query

import (
	"errors"

	"github.com/examprep-hub/learner-engine/internal/application/engine"
	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SNAPSHOT QUERY
// Returns the session's current metric snapshot: cognitive load,
// comprehension depth, metacognition, motivation, and the adaptive path.
// ══════════════════════════════════════════════════════════════════════════════

// GetSnapshotQuery contains the query parameters.
type GetSnapshotQuery struct {
	SessionID string
}

// Validate validates the query.
func (q GetSnapshotQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("get_snapshot: session_id is required")
	}
	return nil
}

// GetSnapshotHandler handles GetSnapshotQuery.
type GetSnapshotHandler struct {
	manager *engine.Manager
}

// NewGetSnapshotHandler creates the handler.
func NewGetSnapshotHandler(manager *engine.Manager) *GetSnapshotHandler {
	return &GetSnapshotHandler{manager: manager}
}

// Handle executes the query.
func (h *GetSnapshotHandler) Handle(q GetSnapshotQuery) (session.MetricsSnapshot, error) {
	if err := q.Validate(); err != nil {
		return session.MetricsSnapshot{}, shared.WrapError("session", "Snapshot", shared.ErrInvalidInput, "invalid query", err)
	}
	return h.manager.Snapshot(shared.SessionID(q.SessionID))
}
