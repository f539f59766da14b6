package query

import (
	"errors"

	"github.com/examprep-hub/learner-engine/internal/application/engine"
	"github.com/examprep-hub/learner-engine/internal/domain/estimator"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET PROJECTION QUERY
// Computes the read-only predictive projection: exam readiness with its
// confidence band, per-topic time-to-mastery, and strong/risk areas.
// ══════════════════════════════════════════════════════════════════════════════

// GetProjectionQuery contains the query parameters.
type GetProjectionQuery struct {
	SessionID string
}

// Validate validates the query.
func (q GetProjectionQuery) Validate() error {
	if q.SessionID == "" {
		return errors.New("get_projection: session_id is required")
	}
	return nil
}

// GetProjectionHandler handles GetProjectionQuery.
type GetProjectionHandler struct {
	manager *engine.Manager
}

// NewGetProjectionHandler creates the handler.
func NewGetProjectionHandler(manager *engine.Manager) *GetProjectionHandler {
	return &GetProjectionHandler{manager: manager}
}

// Handle executes the query.
func (h *GetProjectionHandler) Handle(q GetProjectionQuery) (estimator.Projection, error) {
	if err := q.Validate(); err != nil {
		return estimator.Projection{}, shared.WrapError("session", "Project", shared.ErrInvalidInput, "invalid query", err)
	}
	return h.manager.Project(shared.SessionID(q.SessionID))
}
