package session

import (
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// OverloadReason names a cognitive-overload diagnostic.
type OverloadReason string

const (
	OverloadResponseTimeSpike  OverloadReason = "response_time_spike"
	OverloadAccuracyCollapse   OverloadReason = "accuracy_collapse"
	OverloadRepeatedHesitation OverloadReason = "repeated_hesitation"
	OverloadFatigueWindow      OverloadReason = "fatigue_window"
)

// OverloadFlag couples an overload diagnostic with its matching suggestion.
type OverloadFlag struct {
	Reason     OverloadReason `json:"reason"`
	Suggestion string         `json:"suggestion"`
}

// CognitiveLoadMetrics is the load dimension of a snapshot.
type CognitiveLoadMetrics struct {
	// Level - composite 0..100 load score.
	Level shared.Score `json:"level"`

	// OptimalRange - the band the controller steers toward.
	OptimalRange shared.Range `json:"optimal_range"`

	// OverloadFlags - diagnostics fired on the last event.
	OverloadFlags []OverloadFlag `json:"overload_flags,omitempty"`
}

// InOptimalRange reports whether the current level sits in the optimal band.
func (m CognitiveLoadMetrics) InOptimalRange() bool {
	return m.OptimalRange.Contains(m.Level.Int())
}

// ComprehensionMetrics is the comprehension-depth dimension of a snapshot.
type ComprehensionMetrics struct {
	// Surface, Strategic, Deep - running percentages, each 0..100.
	Surface   shared.Score `json:"surface"`
	Strategic shared.Score `json:"strategic"`
	Deep      shared.Score `json:"deep"`

	// Connections - count of deep classifications this session.
	Connections int `json:"connections"`

	// TransferAbility - 0..100 composite.
	TransferAbility shared.Score `json:"transfer_ability"`
}

// MetacognitionMetrics holds the six metacognitive competency sub-scores.
type MetacognitionMetrics struct {
	Planning   shared.Score `json:"planning"`
	Monitoring shared.Score `json:"monitoring"`
	Evaluation shared.Score `json:"evaluation"`
	Strategy   shared.Score `json:"strategy"`
	Awareness  shared.Score `json:"awareness"`
	Regulation shared.Score `json:"regulation"`
}

// Mean returns the average of the six sub-scores as a float.
func (m MetacognitionMetrics) Mean() float64 {
	sum := m.Planning.Int() + m.Monitoring.Int() + m.Evaluation.Int() +
		m.Strategy.Int() + m.Awareness.Int() + m.Regulation.Int()
	return float64(sum) / 6.0
}

// MotivationMetrics is the motivational dimension of a snapshot.
type MotivationMetrics struct {
	Intrinsic  shared.Score `json:"intrinsic"`
	Extrinsic  shared.Score `json:"extrinsic"`
	Confidence shared.Score `json:"confidence"`
	Anxiety    shared.Score `json:"anxiety"`
	Flow       shared.Score `json:"flow"`
}

// Engagement derives the engagement signal used by the adaptation loop's
// trigger checks from the motivational dimensions.
func (m MotivationMetrics) Engagement() shared.Score {
	raw := 0.5*float64(m.Flow.Int()) + 0.3*float64(m.Intrinsic.Int()) + 0.2*float64(m.Confidence.Int())
	return shared.NewScore(raw)
}

// AdaptivePath is the difficulty/scaffolding recommendation dimension.
type AdaptivePath struct {
	// RecommendedDifficulty - integer difficulty for the next problem,
	// always inside both 1..10 and the ZPD.
	RecommendedDifficulty shared.Difficulty `json:"recommended_difficulty"`

	// TargetDifficulty - the fractional target the controller is steering
	// toward (recommended is its rounded, clamped form).
	TargetDifficulty float64 `json:"target_difficulty"`

	// ZPD - zone of proximal development window.
	ZPD shared.Range `json:"zpd"`

	// AdjustmentRate - max difficulty movement allowed per event.
	AdjustmentRate float64 `json:"adjustment_rate"`

	// Complexity - problem complexity recommendation, 1..10.
	Complexity int `json:"complexity"`

	// Scaffolding - structured-support level, 0..3.
	Scaffolding shared.ScaffoldingLevel `json:"scaffolding"`

	// Strategies - support strategies for the content layer.
	Strategies []string `json:"strategies,omitempty"`
}

// MetricsSnapshot is a value type: recomputed in full on every event, never
// patched in place. A closed session's snapshot never changes again.
type MetricsSnapshot struct {
	CognitiveLoad CognitiveLoadMetrics `json:"cognitive_load"`
	Comprehension ComprehensionMetrics `json:"comprehension"`
	Metacognition MetacognitionMetrics `json:"metacognition"`
	Motivation    MotivationMetrics    `json:"motivation"`
	AdaptivePath  AdaptivePath         `json:"adaptive_path"`

	// EventCount - number of accepted events the snapshot reflects.
	EventCount int `json:"event_count"`
}
