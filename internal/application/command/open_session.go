// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"

	"github.com/examprep-hub/learner-engine/internal/application/engine"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// OPEN SESSION COMMAND
// Opens a live learner session: fetches the profile snapshot (with fallback)
// and registers the session with the manager.
// ══════════════════════════════════════════════════════════════════════════════

// OpenSessionCommand contains the data to open a session.
type OpenSessionCommand struct {
	// LearnerID - the learner in the Profile Store.
	LearnerID string

	// Subject the session will practice.
	Subject string
}

// Validate validates the command.
func (c OpenSessionCommand) Validate() error {
	if c.LearnerID == "" {
		return errors.New("open_session: learner_id is required")
	}
	if c.Subject == "" {
		return errors.New("open_session: subject is required")
	}
	return nil
}

// OpenSessionResult contains the result of opening a session.
type OpenSessionResult struct {
	// SessionID - the minted session identifier.
	SessionID string

	// Degraded - the profile snapshot came from cache or defaults; all
	// decisions for this session will carry degraded=true.
	Degraded bool
}

// OpenSessionHandler handles OpenSessionCommand.
type OpenSessionHandler struct {
	manager *engine.Manager
}

// NewOpenSessionHandler creates the handler.
func NewOpenSessionHandler(manager *engine.Manager) *OpenSessionHandler {
	return &OpenSessionHandler{manager: manager}
}

// Handle executes the command.
func (h *OpenSessionHandler) Handle(ctx context.Context, cmd OpenSessionCommand) (OpenSessionResult, error) {
	if err := cmd.Validate(); err != nil {
		return OpenSessionResult{}, shared.WrapError("session", "Open", shared.ErrInvalidInput, "invalid command", err)
	}

	learnerID, err := shared.NewLearnerID(cmd.LearnerID)
	if err != nil {
		return OpenSessionResult{}, err
	}

	subject := shared.Subject(cmd.Subject)
	if !subject.IsValid() {
		return OpenSessionResult{}, shared.ErrUnknownSubject
	}

	result, err := h.manager.Open(ctx, learnerID, subject)
	if err != nil {
		return OpenSessionResult{}, err
	}

	return OpenSessionResult{
		SessionID: result.SessionID.String(),
		Degraded:  result.Degraded,
	}, nil
}
