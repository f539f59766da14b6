package estimator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/examprep-hub/learner-engine/internal/domain/session"
)

func TestMotivation_BaselineWithNoBehavior(t *testing.T) {
	m := NewMotivation(DefaultPolicy().Motivation)

	metrics := m.Assess(session.BehavioralCounters{})
	assert.Equal(t, 40, metrics.Intrinsic.Int())
	assert.Equal(t, 30, metrics.Extrinsic.Int())
	assert.Equal(t, 50, metrics.Confidence.Int())
	assert.Equal(t, 20, metrics.Anxiety.Int())
	assert.Equal(t, 30, metrics.Flow.Int())
}

func TestMotivation_AllScoresBounded(t *testing.T) {
	m := NewMotivation(DefaultPolicy().Motivation)

	extreme := session.BehavioralCounters{
		Extensions:          100,
		HelpRequests:        100,
		EasyChosen:          100,
		MediumChosen:        100,
		HardChosen:          100,
		PositiveExpressions: 100,
		NegativeExpressions: 100,
		PersistenceMin:      1000,
	}

	metrics := m.Assess(extreme)
	for _, s := range []int{
		metrics.Intrinsic.Int(), metrics.Extrinsic.Int(), metrics.Confidence.Int(),
		metrics.Anxiety.Int(), metrics.Flow.Int(),
	} {
		assert.GreaterOrEqual(t, s, 0)
		assert.LessOrEqual(t, s, 100)
	}
}

func TestMotivation_PositiveCounterNeverLowersItsDimension(t *testing.T) {
	m := NewMotivation(DefaultPolicy().Motivation)

	base := session.BehavioralCounters{Extensions: 1, HardChosen: 1}
	more := base
	more.Extensions = 5

	assert.GreaterOrEqual(t,
		m.Assess(more).Intrinsic.Int(),
		m.Assess(base).Intrinsic.Int())

	baseAnxiety := session.BehavioralCounters{NegativeExpressions: 1}
	moreAnxiety := baseAnxiety
	moreAnxiety.NegativeExpressions = 4

	assert.GreaterOrEqual(t,
		m.Assess(moreAnxiety).Anxiety.Int(),
		m.Assess(baseAnxiety).Anxiety.Int())
}

func TestMotivation_HelpSeekingRaisesExtrinsicLowersConfidence(t *testing.T) {
	m := NewMotivation(DefaultPolicy().Motivation)

	quiet := m.Assess(session.BehavioralCounters{})
	helpSeeking := m.Assess(session.BehavioralCounters{HelpRequests: 5})

	assert.Greater(t, helpSeeking.Extrinsic.Int(), quiet.Extrinsic.Int())
	assert.Less(t, helpSeeking.Confidence.Int(), quiet.Confidence.Int())
}

func TestMotivationMetrics_EngagementDerivation(t *testing.T) {
	m := session.MotivationMetrics{Flow: 80, Intrinsic: 60, Confidence: 50}
	// 0.5*80 + 0.3*60 + 0.2*50 = 68.
	assert.Equal(t, 68, m.Engagement().Int())
}
