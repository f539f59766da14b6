// Package session contains the per-session state owned by the engine: the
// accepted event history, the behavioral counters, the running metric
// snapshot, and the adaptive decisions derived from them. This is a pure
// domain layer with no infrastructure dependencies.
package session

import (
	"strings"
	"time"

	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// StrugglingIndicator tags an observed difficulty pattern on one event.
type StrugglingIndicator string

const (
	// Hesitation-class indicators feed the cognitive-load hesitation count.
	IndicatorLongPause       StrugglingIndicator = "long_pause"
	IndicatorRepeatedErasure StrugglingIndicator = "repeated_erasure"

	// Error-class indicators feed the cognitive-load error count and the
	// frustration counter.
	IndicatorWrongDirection StrugglingIndicator = "wrong_direction"
	IndicatorSkippedStep    StrugglingIndicator = "skipped_step"
	IndicatorGaveUp         StrugglingIndicator = "gave_up"
)

// IsValid checks if the indicator is one of the known tags.
func (i StrugglingIndicator) IsValid() bool {
	switch i {
	case IndicatorLongPause, IndicatorRepeatedErasure, IndicatorWrongDirection,
		IndicatorSkippedStep, IndicatorGaveUp:
		return true
	}
	return false
}

// IsHesitation reports whether the indicator counts toward hesitations.
func (i StrugglingIndicator) IsHesitation() bool {
	return i == IndicatorLongPause || i == IndicatorRepeatedErasure
}

// IsErrorSignal reports whether the indicator counts toward error signals.
func (i StrugglingIndicator) IsErrorSignal() bool {
	return i == IndicatorWrongDirection || i == IndicatorSkippedStep || i == IndicatorGaveUp
}

// ExpressionTone classifies a learner's free-form self-expression on an event.
type ExpressionTone string

const (
	ToneNeutral  ExpressionTone = "neutral"
	TonePositive ExpressionTone = "positive"
	ToneNegative ExpressionTone = "negative"
)

// IsValid checks if the tone is one of the known values.
func (t ExpressionTone) IsValid() bool {
	switch t {
	case ToneNeutral, TonePositive, ToneNegative, "":
		return true
	}
	return false
}

// ChallengeChoice records which challenge level the learner picked when the
// UI offered a choice for this problem.
type ChallengeChoice string

const (
	ChallengeNone   ChallengeChoice = ""
	ChallengeEasy   ChallengeChoice = "easy"
	ChallengeMedium ChallengeChoice = "medium"
	ChallengeHard   ChallengeChoice = "hard"
)

// IsValid checks if the choice is one of the known values.
func (c ChallengeChoice) IsValid() bool {
	switch c {
	case ChallengeNone, ChallengeEasy, ChallengeMedium, ChallengeHard:
		return true
	}
	return false
}

// LearningEvent is a single per-problem response event. Immutable once
// accepted; rejected events are never stored.
type LearningEvent struct {
	// SessionID - the live session this event belongs to.
	SessionID shared.SessionID `json:"session_id"`

	// ProblemID - the problem answered.
	ProblemID shared.ProblemID `json:"problem_id"`

	// Subject and Topic of the problem.
	Subject shared.Subject `json:"subject"`
	Topic   shared.Topic   `json:"topic"`

	// Difficulty of the served problem (1..10).
	Difficulty shared.Difficulty `json:"difficulty"`

	// Answer - the learner's answer; opaque to the engine.
	Answer string `json:"answer"`

	// Correct - whether the answer was graded correct.
	Correct bool `json:"correct"`

	// ResponseTimeMs - time to answer, milliseconds (>= 0).
	ResponseTimeMs int64 `json:"response_time_ms"`

	// Confidence - self-reported confidence (1..5).
	Confidence shared.Confidence `json:"confidence"`

	// Explanation - the learner's free-form explanation of their solution.
	Explanation string `json:"explanation"`

	// Strategies - solution methods the learner declared using.
	Strategies []string `json:"strategies,omitempty"`

	// Struggling - observed difficulty indicators.
	Struggling []StrugglingIndicator `json:"struggling,omitempty"`

	// Expression - tone of the learner's self-expression, if any.
	Expression ExpressionTone `json:"expression,omitempty"`

	// HelpRequested - the learner asked for help on this problem.
	HelpRequested bool `json:"help_requested"`

	// ChallengeChoice - challenge level picked when offered.
	ChallengeChoice ChallengeChoice `json:"challenge_choice,omitempty"`

	// VoluntaryExtension - the learner chose to keep going past the
	// planned session end.
	VoluntaryExtension bool `json:"voluntary_extension"`

	// Timestamp - when the learner answered.
	Timestamp time.Time `json:"timestamp"`

	// Annotations - opaque content-layer bag. The engine never branches
	// on these values.
	Annotations map[string]string `json:"annotations,omitempty"`
}

// Accuracy derives a 0..1 accuracy signal from correctness and confidence.
// A confidently correct answer scores near 1; a confidently wrong answer
// scores near 0; low confidence pulls both toward 0.5.
func (e *LearningEvent) Accuracy() float64 {
	calibration := 0.1 * float64(e.Confidence)
	if e.Correct {
		return shared.ClampFloat(0.5+calibration, 0, 1)
	}
	return shared.ClampFloat(0.5-calibration, 0, 1)
}

// HesitationCount counts hesitation-class struggling indicators.
func (e *LearningEvent) HesitationCount() int {
	n := 0
	for _, ind := range e.Struggling {
		if ind.IsHesitation() {
			n++
		}
	}
	return n
}

// ErrorSignalCount counts error-class struggling indicators, plus one for an
// incorrect answer.
func (e *LearningEvent) ErrorSignalCount() int {
	n := 0
	for _, ind := range e.Struggling {
		if ind.IsErrorSignal() {
			n++
		}
	}
	if !e.Correct {
		n++
	}
	return n
}

// Normalize cleans caller-supplied fields in place: trims text, defaults the
// timestamp, drops duplicate struggling indicators. Called before Validate.
func (e *LearningEvent) Normalize(now time.Time) {
	e.Explanation = strings.TrimSpace(e.Explanation)
	e.Answer = strings.TrimSpace(e.Answer)
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if len(e.Struggling) > 1 {
		seen := make(map[StrugglingIndicator]bool, len(e.Struggling))
		deduped := e.Struggling[:0]
		for _, ind := range e.Struggling {
			if !seen[ind] {
				seen[ind] = true
				deduped = append(deduped, ind)
			}
		}
		e.Struggling = deduped
	}
}

// Validate checks the event against the engine's acceptance rules. A
// rejected event must never touch session state.
func (e *LearningEvent) Validate(now time.Time) error {
	if !e.ProblemID.IsValid() {
		return shared.NewDomainError("session", "ValidateEvent", shared.ErrEmptyValue, "problem ID is required")
	}
	if !e.Subject.IsValid() {
		return shared.ErrUnknownSubject
	}
	if !e.Difficulty.IsValid() {
		return shared.ErrDifficultyOutOfRange
	}
	if e.ResponseTimeMs < 0 {
		return shared.ErrNegativeLatency
	}
	if !e.Confidence.IsValid() {
		return shared.ErrConfidenceOutOfRange
	}
	if e.Timestamp.After(now.Add(time.Minute)) { // allow 1 minute clock skew
		return shared.NewDomainError("session", "ValidateEvent", shared.ErrFutureTimestamp, "event timestamp is in the future")
	}
	for _, ind := range e.Struggling {
		if !ind.IsValid() {
			return shared.NewDomainError("session", "ValidateEvent", shared.ErrInvalidInput, "unknown struggling indicator: "+string(ind))
		}
	}
	if !e.Expression.IsValid() {
		return shared.NewDomainError("session", "ValidateEvent", shared.ErrInvalidInput, "unknown expression tone")
	}
	if !e.ChallengeChoice.IsValid() {
		return shared.NewDomainError("session", "ValidateEvent", shared.ErrInvalidInput, "unknown challenge choice")
	}
	return nil
}
