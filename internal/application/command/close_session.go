package command

import (
	"context"
	"errors"

	"github.com/examprep-hub/learner-engine/internal/application/engine"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CLOSE SESSION COMMAND
// Finalizes a session and hands its record to the archival sink. Idempotent
// at the API level: a repeat close maps to SessionClosed.
// ══════════════════════════════════════════════════════════════════════════════

// CloseSessionCommand contains the session to close.
type CloseSessionCommand struct {
	SessionID string
}

// Validate validates the command.
func (c CloseSessionCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("close_session: session_id is required")
	}
	return nil
}

// CloseSessionHandler handles CloseSessionCommand.
type CloseSessionHandler struct {
	manager *engine.Manager
}

// NewCloseSessionHandler creates the handler.
func NewCloseSessionHandler(manager *engine.Manager) *CloseSessionHandler {
	return &CloseSessionHandler{manager: manager}
}

// Handle executes the command.
func (h *CloseSessionHandler) Handle(ctx context.Context, cmd CloseSessionCommand) error {
	if err := cmd.Validate(); err != nil {
		return shared.WrapError("session", "Close", shared.ErrInvalidInput, "invalid command", err)
	}
	return h.manager.Close(ctx, shared.SessionID(cmd.SessionID))
}
