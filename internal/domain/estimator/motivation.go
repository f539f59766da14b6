package estimator

import (
	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// Motivation computes the five motivational-state scores from the session's
// behavioral counters. Each score is a clamped [0,100] weighted sum; the
// weights live in the policy table, but the contract is fixed: output always
// in range, and raising a dimension's positive counter never lowers its
// score.
type Motivation struct {
	policy MotivationPolicy
}

// NewMotivation creates the estimator with the given policy rows.
func NewMotivation(policy MotivationPolicy) *Motivation {
	return &Motivation{policy: policy}
}

// Assess computes all five dimensions from the counters.
func (m *Motivation) Assess(c session.BehavioralCounters) session.MotivationMetrics {
	return session.MotivationMetrics{
		Intrinsic:  apply(m.policy.Intrinsic, c),
		Extrinsic:  apply(m.policy.Extrinsic, c),
		Confidence: apply(m.policy.Confidence, c),
		Anxiety:    apply(m.policy.Anxiety, c),
		Flow:       apply(m.policy.Flow, c),
	}
}

// apply evaluates one weighted-sum row against the counters.
func apply(w MotivationWeights, c session.BehavioralCounters) shared.Score {
	raw := w.Base +
		w.Extensions*float64(c.Extensions) +
		w.HelpRequests*float64(c.HelpRequests) +
		w.EasyChosen*float64(c.EasyChosen) +
		w.MediumChosen*float64(c.MediumChosen) +
		w.HardChosen*float64(c.HardChosen) +
		w.Positive*float64(c.PositiveExpressions) +
		w.Negative*float64(c.NegativeExpressions) +
		w.PersistenceMin*c.PersistenceMin
	return shared.NewScore(raw)
}
