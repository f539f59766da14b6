package estimator

import (
	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// DepthBucket is the comprehension bucket one event falls into.
type DepthBucket int

const (
	BucketSurface DepthBucket = iota
	BucketStrategic
	BucketDeep
)

// String returns the bucket name.
func (b DepthBucket) String() string {
	switch b {
	case BucketStrategic:
		return "strategic"
	case BucketDeep:
		return "deep"
	default:
		return "surface"
	}
}

// Comprehension classifies each event into exactly one depth bucket and
// accumulates running percentages over the session history. Stateless; the
// history is the input.
type Comprehension struct {
	policy ComprehensionPolicy
}

// NewComprehension creates the classifier with the given policy row.
func NewComprehension(policy ComprehensionPolicy) *Comprehension {
	return &Comprehension{policy: policy}
}

// Classify buckets a single event by its explanation text and declared
// solution methods:
//
//   - deep: explanation exceeds the deep length threshold AND contains an
//     analogy/equivalence connective
//   - strategic: method-selection language plus a causal connective, with
//     no rote-recall language present
//   - surface: everything else, including rote-recall explanations that
//     would otherwise read as strategic
func (c *Comprehension) Classify(e *session.LearningEvent) DepthBucket {
	text := explanationText(e.Explanation)

	if len(e.Explanation) >= c.policy.DeepMinLen && hasAnalogy(text) {
		return BucketDeep
	}
	if hasRote(text) {
		return BucketSurface
	}
	if (hasMethodSelection(text) || len(e.Strategies) > 0) && hasCausal(text) {
		return BucketStrategic
	}
	return BucketSurface
}

// Assess recomputes the comprehension metrics from the full history. A
// correct event adds the fixed increment to its bucket's running total; an
// incorrect event adds nothing. Totals divide by event count and cap at 100.
func (c *Comprehension) Assess(history []session.LearningEvent) session.ComprehensionMetrics {
	if len(history) == 0 {
		return session.ComprehensionMetrics{}
	}

	var surfaceTotal, strategicTotal, deepTotal float64
	connections := 0

	for i := range history {
		e := &history[i]
		bucket := c.Classify(e)
		if bucket == BucketDeep {
			connections++
		}
		if !e.Correct {
			continue
		}
		switch bucket {
		case BucketSurface:
			surfaceTotal += c.policy.CorrectIncrement
		case BucketStrategic:
			strategicTotal += c.policy.CorrectIncrement
		case BucketDeep:
			deepTotal += c.policy.CorrectIncrement
		}
	}

	n := float64(len(history))
	surface := shared.NewScore(surfaceTotal / n)
	strategic := shared.NewScore(strategicTotal / n)
	deep := shared.NewScore(deepTotal / n)

	transfer := shared.NewScore(c.policy.TransferScale * (c.policy.DeepWeight*float64(deep.Int()) +
		c.policy.StrategicWeight*float64(strategic.Int()) +
		c.policy.ConnectionWeight*float64(connections)))

	return session.ComprehensionMetrics{
		Surface:         surface,
		Strategic:       strategic,
		Deep:            deep,
		Connections:     connections,
		TransferAbility: transfer,
	}
}
