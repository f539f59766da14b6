package estimator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/examprep-hub/learner-engine/internal/domain/learner"
	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

func projectorTestState() *session.State {
	s := session.NewState("sess-1", learner.DefaultProfile("learner-1"), shared.SubjectMath, false, time.Now())
	return s
}

func TestProjector_EmptySessionNeutralProjection(t *testing.T) {
	p := NewProjector(DefaultPolicy().Projection, DefaultPolicy().Difficulty)
	s := projectorTestState()
	s.Metrics.Metacognition.Regulation = 50

	proj := p.Project(s)

	// Neutral ability 5 -> readiness 50 + regulation bonus 50/6/10.
	assert.Equal(t, "sess-1", proj.SessionID.String())
	assert.Equal(t, 51, proj.ExamReadiness.Int())
	assert.Equal(t, 0, proj.SampleSize)
	assert.Empty(t, proj.TimeToMastery)
}

func TestProjector_ReadinessBandClamped(t *testing.T) {
	p := NewProjector(DefaultPolicy().Projection, DefaultPolicy().Difficulty)
	s := projectorTestState()
	s.Series.Accuracy = []float64{1, 1, 1, 1, 1}
	s.Series.ResponseTimeMs = []int64{10000, 10000, 10000, 10000, 10000}

	proj := p.Project(s)

	// Ability 10 plus efficiency bonus pushes readiness toward the top;
	// the band must stay inside 0..100.
	assert.GreaterOrEqual(t, proj.ReadinessBand.Lower, 0)
	assert.LessOrEqual(t, proj.ReadinessBand.Upper, 100)
	assert.True(t, proj.ReadinessBand.Contains(proj.ExamReadiness.Int()))
}

func TestProjector_TimeToMasteryPerTopic(t *testing.T) {
	p := NewProjector(DefaultPolicy().Projection, DefaultPolicy().Difficulty)
	s := projectorTestState()

	for i := 0; i < 3; i++ {
		s.History = append(s.History, session.LearningEvent{
			Topic: "fractions", Correct: true, Confidence: 5,
		})
	}
	for i := 0; i < 3; i++ {
		s.History = append(s.History, session.LearningEvent{
			Topic: "speed-distance", Correct: false, Confidence: 4,
		})
	}

	proj := p.Project(s)

	assert.Len(t, proj.TimeToMastery, 2)
	// Sorted by topic name.
	assert.Equal(t, shared.Topic("fractions"), proj.TimeToMastery[0].Topic)
	assert.Equal(t, shared.Topic("speed-distance"), proj.TimeToMastery[1].Topic)
	// The struggling topic needs more practice than the mastered one.
	assert.Greater(t, proj.TimeToMastery[1].MinutesToMastery, proj.TimeToMastery[0].MinutesToMastery)
	assert.Equal(t, 6, proj.SampleSize)
}

func TestProjector_StrongAndRiskAreas(t *testing.T) {
	p := NewProjector(DefaultPolicy().Projection, DefaultPolicy().Difficulty)
	s := projectorTestState()
	s.History = append(s.History, session.LearningEvent{Topic: "fractions", Correct: true, Confidence: 4})
	s.Metrics = session.MetricsSnapshot{
		Comprehension: session.ComprehensionMetrics{Strategic: 80, Deep: 10},
		Motivation:    session.MotivationMetrics{Intrinsic: 85, Anxiety: 75, Flow: 20},
		CognitiveLoad: session.CognitiveLoadMetrics{
			Level:        90,
			OptimalRange: shared.Range{Lower: 30, Upper: 70},
		},
	}

	proj := p.Project(s)

	assert.Contains(t, proj.StrongAreas, "strategic_comprehension")
	assert.Contains(t, proj.StrongAreas, "intrinsic_motivation")
	assert.Contains(t, proj.RiskAreas, "shallow_comprehension")
	assert.Contains(t, proj.RiskAreas, "anxiety")
	assert.Contains(t, proj.RiskAreas, "cognitive_overload")
}

func TestProjector_DoesNotMutateState(t *testing.T) {
	p := NewProjector(DefaultPolicy().Projection, DefaultPolicy().Difficulty)
	s := projectorTestState()
	s.Series.Accuracy = []float64{0.5, 0.6}
	before := *s

	_ = p.Project(s)

	assert.Equal(t, before.Metrics, s.Metrics)
	assert.Equal(t, before.Series.Accuracy, s.Series.Accuracy)
}
