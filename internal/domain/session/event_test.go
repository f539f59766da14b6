package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

func validEvent() LearningEvent {
	return LearningEvent{
		ProblemID:      "prob-1",
		Subject:        shared.SubjectMath,
		Topic:          "fractions",
		Difficulty:     5,
		Correct:        true,
		ResponseTimeMs: 20000,
		Confidence:     4,
		Explanation:    "I multiplied both sides",
		Timestamp:      time.Now(),
	}
}

func TestLearningEvent_Validate(t *testing.T) {
	now := time.Now()

	e := validEvent()
	require.NoError(t, e.Validate(now))

	cases := []struct {
		name   string
		mutate func(*LearningEvent)
	}{
		{"missing problem ID", func(e *LearningEvent) { e.ProblemID = "" }},
		{"unknown subject", func(e *LearningEvent) { e.Subject = "astrology" }},
		{"difficulty below scale", func(e *LearningEvent) { e.Difficulty = 0 }},
		{"difficulty above scale", func(e *LearningEvent) { e.Difficulty = 11 }},
		{"negative response time", func(e *LearningEvent) { e.ResponseTimeMs = -1 }},
		{"confidence below scale", func(e *LearningEvent) { e.Confidence = 0 }},
		{"confidence above scale", func(e *LearningEvent) { e.Confidence = 6 }},
		{"future timestamp", func(e *LearningEvent) { e.Timestamp = now.Add(2 * time.Hour) }},
		{"unknown struggling indicator", func(e *LearningEvent) { e.Struggling = []StrugglingIndicator{"bored"} }},
		{"unknown expression tone", func(e *LearningEvent) { e.Expression = "ecstatic" }},
		{"unknown challenge choice", func(e *LearningEvent) { e.ChallengeChoice = "extreme" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validEvent()
			tc.mutate(&e)
			assert.Error(t, e.Validate(now))
		})
	}
}

func TestLearningEvent_ValidateAllowsClockSkew(t *testing.T) {
	now := time.Now()
	e := validEvent()
	e.Timestamp = now.Add(30 * time.Second)
	assert.NoError(t, e.Validate(now))
}

func TestLearningEvent_Normalize(t *testing.T) {
	now := time.Now()
	e := validEvent()
	e.Explanation = "  padded  "
	e.Answer = " 42 "
	e.Timestamp = time.Time{}
	e.Struggling = []StrugglingIndicator{IndicatorLongPause, IndicatorLongPause, IndicatorGaveUp}

	e.Normalize(now)

	assert.Equal(t, "padded", e.Explanation)
	assert.Equal(t, "42", e.Answer)
	assert.Equal(t, now, e.Timestamp)
	assert.Equal(t, []StrugglingIndicator{IndicatorLongPause, IndicatorGaveUp}, e.Struggling)
}

func TestLearningEvent_Accuracy(t *testing.T) {
	e := validEvent()

	e.Correct = true
	e.Confidence = 5
	assert.InDelta(t, 1.0, e.Accuracy(), 0.001)

	e.Confidence = 1
	assert.InDelta(t, 0.6, e.Accuracy(), 0.001)

	e.Correct = false
	e.Confidence = 5
	assert.InDelta(t, 0.0, e.Accuracy(), 0.001)

	e.Confidence = 1
	assert.InDelta(t, 0.4, e.Accuracy(), 0.001)
}

func TestLearningEvent_IndicatorClasses(t *testing.T) {
	e := validEvent()
	e.Correct = false
	e.Struggling = []StrugglingIndicator{
		IndicatorLongPause,
		IndicatorRepeatedErasure,
		IndicatorWrongDirection,
		IndicatorGaveUp,
	}

	assert.Equal(t, 2, e.HesitationCount())
	// Two error-class indicators plus one for the incorrect answer.
	assert.Equal(t, 3, e.ErrorSignalCount())
}
