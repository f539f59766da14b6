package command

import (
	"context"
	"errors"
	"log/slog"

	"github.com/examprep-hub/learner-engine/internal/application/engine"
	"github.com/examprep-hub/learner-engine/internal/domain/catalog"
	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROCESS EVENT COMMAND
// Feeds one learning event through the adaptation loop and annotates the
// resulting next-problem spec with applicable methods from the Content
// Catalog. Catalog data is annotation only; a catalog failure degrades the
// annotation, never the decision.
// ══════════════════════════════════════════════════════════════════════════════

// ProcessEventCommand contains the event to process.
type ProcessEventCommand struct {
	// SessionID - the target session.
	SessionID string

	// Event - the learner's response event.
	Event session.LearningEvent
}

// Validate validates the command shell (the event itself is validated by
// the engine's event validator).
func (c ProcessEventCommand) Validate() error {
	if c.SessionID == "" {
		return errors.New("process_event: session_id is required")
	}
	return nil
}

// ProcessEventHandler handles ProcessEventCommand.
type ProcessEventHandler struct {
	manager *engine.Manager
	catalog catalog.Catalog
	logger  *slog.Logger
}

// NewProcessEventHandler creates the handler. catalog may be nil, in which
// case decisions carry no method annotations.
func NewProcessEventHandler(manager *engine.Manager, cat catalog.Catalog, logger *slog.Logger) *ProcessEventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ProcessEventHandler{manager: manager, catalog: cat, logger: logger}
}

// Handle executes the command.
func (h *ProcessEventHandler) Handle(ctx context.Context, cmd ProcessEventCommand) (session.AdaptiveDecision, error) {
	if err := cmd.Validate(); err != nil {
		return session.AdaptiveDecision{}, shared.WrapError("session", "ProcessEvent", shared.ErrInvalidInput, "invalid command", err)
	}

	decision, err := h.manager.ProcessEvent(ctx, shared.SessionID(cmd.SessionID), cmd.Event)
	if err != nil {
		return session.AdaptiveDecision{}, err
	}

	h.annotateMethods(ctx, &decision)
	return decision, nil
}

// annotateMethods fills NextProblem.MethodIDs from the catalog. Failures
// are logged and leave the annotation empty.
func (h *ProcessEventHandler) annotateMethods(ctx context.Context, decision *session.AdaptiveDecision) {
	if h.catalog == nil {
		return
	}

	grade := h.sessionGrade(decision.SessionID)
	methods, err := h.catalog.ListApplicableMethods(ctx, decision.NextProblem.Subject, decision.NextProblem.Topic, grade)
	if err != nil {
		h.logger.Warn("catalog annotation failed",
			"session_id", decision.SessionID.String(),
			"error", err)
		return
	}
	ids := make([]string, len(methods))
	for i, m := range methods {
		ids[i] = m.String()
	}
	decision.NextProblem.MethodIDs = ids
}

// sessionGrade resolves the learner's grade for the catalog query, with a
// mid-range default when the session vanished between calls.
func (h *ProcessEventHandler) sessionGrade(id shared.SessionID) shared.GradeLevel {
	if grade, err := h.manager.Grade(id); err == nil {
		return grade
	}
	return 6
}
