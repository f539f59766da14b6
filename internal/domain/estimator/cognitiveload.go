package estimator

import (
	"math"

	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// LoadInput carries the per-event signals the cognitive-load formula needs.
type LoadInput struct {
	// ResponseTimeMs - time to answer the current problem.
	ResponseTimeMs int64

	// Accuracy - 0..1 accuracy signal derived from correctness and
	// confidence.
	Accuracy float64

	// Hesitations - hesitation-class struggling indicators on the event.
	Hesitations int

	// ErrorSignals - error-class indicators plus incorrectness.
	ErrorSignals int

	// ElapsedMs - session duration at this event.
	ElapsedMs int64
}

// LoadReading is the estimator output: the bounded score plus diagnostics.
type LoadReading struct {
	Metrics session.CognitiveLoadMetrics

	// Anomalies - neutral-substitution notes for decision diagnostics.
	Anomalies []string
}

// CognitiveLoad computes a 0..100 composite load score from one event plus
// session duration. Stateless; safe to share across sessions.
type CognitiveLoad struct {
	policy LoadPolicy
}

// NewCognitiveLoad creates the estimator with the given policy row.
func NewCognitiveLoad(policy LoadPolicy) *CognitiveLoad {
	return &CognitiveLoad{policy: policy}
}

// Estimate applies the fixed load formula:
//
//	timeFactor       = min(responseTimeMs / timeNorm, 1)
//	accuracyFactor   = max(0, (1 - accuracy) * accuracyWeight)
//	hesitationFactor = hesitations * hesitationWeight
//	errorFactor      = errorSignals * errorWeight
//	fatigueFactor    = min(elapsedMs / fatigueNorm, fatigueCap)
//	load             = clamp(round(scale * sum), 0, 100)
//
// Any factor that divides into a non-finite value is substituted with 0 and
// noted in Anomalies; estimation never fails.
func (c *CognitiveLoad) Estimate(in LoadInput) LoadReading {
	var anomalies []string

	timeFactor := shared.SafeDiv(float64(in.ResponseTimeMs), c.policy.TimeNormMs, 0)
	if c.policy.TimeNormMs == 0 {
		anomalies = append(anomalies, "load: zero time norm, time factor neutralized")
	}
	timeFactor = math.Min(timeFactor, 1)

	accuracy := in.Accuracy
	if math.IsNaN(accuracy) || math.IsInf(accuracy, 0) {
		accuracy = 0
		anomalies = append(anomalies, "load: non-finite accuracy, substituted 0")
	}
	accuracyFactor := math.Max(0, (1-accuracy)*c.policy.AccuracyWeight)

	hesitationFactor := float64(in.Hesitations) * c.policy.HesitationWeight
	errorFactor := float64(in.ErrorSignals) * c.policy.ErrorWeight

	fatigueFactor := shared.SafeDiv(float64(in.ElapsedMs), c.policy.FatigueNormMs, 0)
	if c.policy.FatigueNormMs == 0 {
		anomalies = append(anomalies, "load: zero fatigue norm, fatigue factor neutralized")
	}
	fatigueFactor = math.Min(fatigueFactor, c.policy.FatigueCap)

	sum := timeFactor + accuracyFactor + hesitationFactor + errorFactor + fatigueFactor
	level := shared.NewScore(c.policy.Scale * sum)

	return LoadReading{
		Metrics: session.CognitiveLoadMetrics{
			Level:         level,
			OptimalRange:  c.policy.OptimalRange,
			OverloadFlags: c.flags(level, accuracy, in),
		},
		Anomalies: anomalies,
	}
}

// flags evaluates the overload diagnostics; each one carries its matching
// suggestion for the content layer.
func (c *CognitiveLoad) flags(level shared.Score, accuracy float64, in LoadInput) []session.OverloadFlag {
	var flags []session.OverloadFlag
	if level.Int() > c.policy.OverloadLevel {
		flags = append(flags, session.OverloadFlag{
			Reason:     session.OverloadResponseTimeSpike,
			Suggestion: "lower difficulty",
		})
	}
	if accuracy < c.policy.AccuracyCollapse {
		flags = append(flags, session.OverloadFlag{
			Reason:     session.OverloadAccuracyCollapse,
			Suggestion: "review basics",
		})
	}
	if in.Hesitations > c.policy.HesitationLimit {
		flags = append(flags, session.OverloadFlag{
			Reason:     session.OverloadRepeatedHesitation,
			Suggestion: "add hints",
		})
	}
	if float64(in.ElapsedMs) > c.policy.FatigueWindowMs {
		flags = append(flags, session.OverloadFlag{
			Reason:     session.OverloadFatigueWindow,
			Suggestion: "suggest a break",
		})
	}
	return flags
}
