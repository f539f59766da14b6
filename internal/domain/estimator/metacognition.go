package estimator

import (
	"math"

	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// Metacognition computes the six competency sub-scores from the full
// session history. Stateless.
type Metacognition struct {
	policy MetacognitionPolicy
}

// NewMetacognition creates the assessor with the given policy row.
func NewMetacognition(policy MetacognitionPolicy) *Metacognition {
	return &Metacognition{policy: policy}
}

// Assess recomputes all six sub-scores:
//
//	planning   - % of entries whose explanation contains sequencing language
//	monitoring - % containing verification language
//	evaluation - 100 * mean(1 - |confidence/5 - actualPerformance|)
//	strategy   - min(100, weight * distinct strategies used)
//	awareness  - min(100, mean explanation length / divisor)
//	regulation - clamp(50 + 100*(mean perf last w - mean perf first w), 0, 100)
//
// Regulation defaults to 50 when the history holds fewer entries than the
// regulation window.
func (m *Metacognition) Assess(history []session.LearningEvent) session.MetacognitionMetrics {
	if len(history) == 0 {
		return session.MetacognitionMetrics{Regulation: 50}
	}

	n := float64(len(history))
	planningHits := 0
	monitoringHits := 0
	calibrationSum := 0.0
	lengthSum := 0.0
	strategies := make(map[string]bool)

	for i := range history {
		e := &history[i]
		text := explanationText(e.Explanation)
		if hasSequencing(text) {
			planningHits++
		}
		if hasVerification(text) {
			monitoringHits++
		}

		actual := 0.0
		if e.Correct {
			actual = 1.0
		}
		calibrationSum += 1 - math.Abs(e.Confidence.Normalized()-actual)

		lengthSum += float64(len(e.Explanation))
		for _, s := range e.Strategies {
			strategies[s] = true
		}
	}

	return session.MetacognitionMetrics{
		Planning:   shared.NewScore(100 * float64(planningHits) / n),
		Monitoring: shared.NewScore(100 * float64(monitoringHits) / n),
		Evaluation: shared.NewScore(100 * calibrationSum / n),
		Strategy:   shared.NewScore(m.policy.StrategyWeight * float64(len(strategies))),
		Awareness:  shared.NewScore(lengthSum / n / m.policy.AwarenessDivisor),
		Regulation: m.regulation(history),
	}
}

// regulation compares performance at the two ends of the history.
func (m *Metacognition) regulation(history []session.LearningEvent) shared.Score {
	w := m.policy.RegulationWindow
	if w <= 0 || len(history) < w {
		return 50
	}

	first := 0.0
	last := 0.0
	for i := 0; i < w; i++ {
		if history[i].Correct {
			first++
		}
		if history[len(history)-w+i].Correct {
			last++
		}
	}
	delta := (last - first) / float64(w)
	return shared.NewScore(50 + 100*delta)
}
