package session

import (
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// ActionTag names an adaptation trigger that fired on a decision.
type ActionTag string

const (
	ActionSuggestBreak   ActionTag = "suggest_break"
	ActionEncourage      ActionTag = "encourage"
	ActionGamifyNext     ActionTag = "gamify_next"
	ActionRaiseChallenge ActionTag = "raise_challenge"
)

// SupportContent holds the immediate support text slots. The engine leaves
// them as opaque strings for the content layer to fill; it only decides
// which slots are active.
type SupportContent struct {
	Hint          string `json:"hint,omitempty"`
	Encouragement string `json:"encouragement,omitempty"`
	Clarification string `json:"clarification,omitempty"`
	NextPrompt    string `json:"next_prompt,omitempty"`
}

// NextProblemSpec tells the Content Catalog what to serve next.
type NextProblemSpec struct {
	Subject    shared.Subject    `json:"subject"`
	Topic      shared.Topic      `json:"topic"`
	Difficulty shared.Difficulty `json:"difficulty"`

	// Scaffolding - support level the next problem should carry.
	Scaffolding shared.ScaffoldingLevel `json:"scaffolding"`

	// Novelty - extra novelty requested by the gamify trigger (0 = none).
	Novelty int `json:"novelty"`

	// Interactive - request interactive elements on the next problem.
	Interactive bool `json:"interactive"`

	// MethodIDs - applicable solution methods from the Content Catalog.
	// Annotation only; never feeds estimator math.
	MethodIDs []string `json:"method_ids,omitempty"`
}

// AdaptiveDecision is the immutable output of processing one event.
type AdaptiveDecision struct {
	SessionID shared.SessionID `json:"session_id"`

	// EventIndex - zero-based index of the event this decision answers.
	EventIndex int `json:"event_index"`

	// Support - immediate support text slots.
	Support SupportContent `json:"support"`

	// DifficultyChange - difficulty delta, already clamped to the
	// controller's adjustment-rate bound.
	DifficultyChange float64 `json:"difficulty_change"`

	// SupportLevel - 0..5 intensity of tutoring support.
	SupportLevel shared.SupportLevel `json:"support_level"`

	// Actions - trigger tags fired on this event (unioned, never exclusive).
	Actions []ActionTag `json:"actions,omitempty"`

	// NextProblem - spec for the Content Catalog.
	NextProblem NextProblemSpec `json:"next_problem"`

	// Degraded - true when any external lookup behind this decision fell
	// back to cached or default data.
	Degraded bool `json:"degraded"`

	// Diagnostics - computation anomaly notes (neutral substitutions).
	Diagnostics []string `json:"diagnostics,omitempty"`
}

// HasAction reports whether the given trigger fired on this decision.
func (d *AdaptiveDecision) HasAction(tag ActionTag) bool {
	for _, a := range d.Actions {
		if a == tag {
			return true
		}
	}
	return false
}

// ActionStrings returns the action tags as plain strings for event payloads.
func (d *AdaptiveDecision) ActionStrings() []string {
	out := make([]string, len(d.Actions))
	for i, a := range d.Actions {
		out[i] = string(a)
	}
	return out
}
