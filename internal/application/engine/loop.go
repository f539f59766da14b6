// Package engine contains the real-time adaptation loop and the session
// manager: the orchestration layer that runs the estimators per event,
// evaluates trigger conditions, and owns the map of live sessions.
package engine

import (
	"time"

	"github.com/examprep-hub/learner-engine/internal/domain/estimator"
	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// Loop is the real-time adaptation loop. On each event it runs the five
// estimators in dependency order, replaces the session's metric snapshot
// wholesale, evaluates the trigger conditions, and emits an adaptive
// decision. The loop holds no per-session state; the caller serializes
// access to the session it passes in.
type Loop struct {
	load          *estimator.CognitiveLoad
	comprehension *estimator.Comprehension
	metacognition *estimator.Metacognition
	motivation    *estimator.Motivation
	difficulty    *estimator.Difficulty
	triggers      estimator.TriggerPolicy
}

// NewLoop wires the estimators from one policy table.
func NewLoop(policy estimator.Policy) *Loop {
	return &Loop{
		load:          estimator.NewCognitiveLoad(policy.Load),
		comprehension: estimator.NewComprehension(policy.Comprehension),
		metacognition: estimator.NewMetacognition(policy.Metacognition),
		motivation:    estimator.NewMotivation(policy.Motivation),
		difficulty:    estimator.NewDifficulty(policy.Difficulty),
		triggers:      policy.Triggers,
	}
}

// Run processes one event against an open session: validate, append,
// estimate, decide. The caller holds the session lock. A validation error
// leaves the state untouched.
func (l *Loop) Run(s *session.State, e session.LearningEvent, now time.Time) (session.AdaptiveDecision, error) {
	e.Normalize(now)
	if err := e.Validate(now); err != nil {
		return session.AdaptiveDecision{}, err
	}
	if err := s.Append(e); err != nil {
		return session.AdaptiveDecision{}, err
	}

	accuracy := e.Accuracy()
	elapsed := s.ElapsedAt(e.Timestamp)

	s.RecordOutcome(accuracy, e.ResponseTimeMs)

	loadReading := l.load.Estimate(estimator.LoadInput{
		ResponseTimeMs: e.ResponseTimeMs,
		Accuracy:       accuracy,
		Hesitations:    e.HesitationCount(),
		ErrorSignals:   e.ErrorSignalCount(),
		ElapsedMs:      elapsed.Milliseconds(),
	})

	comprehension := l.comprehension.Assess(s.History)
	metacognition := l.metacognition.Assess(s.History)
	motivation := l.motivation.Assess(s.Counters)

	path := l.difficulty.Recommend(estimator.DifficultyInput{
		Accuracy:       s.Series.Accuracy,
		ResponseTimeMs: s.Series.ResponseTimeMs,
		CurrentLoad:    loadReading.Metrics.Level,
	})

	engagement := motivation.Engagement()
	s.RecordEstimates(loadReading.Metrics.Level.Int(), engagement.Int())

	decision := l.decide(s, &e, &path, loadReading, engagement, elapsed)

	s.ReplaceMetrics(session.MetricsSnapshot{
		CognitiveLoad: loadReading.Metrics,
		Comprehension: comprehension,
		Metacognition: metacognition,
		Motivation:    motivation,
		AdaptivePath:  path,
		EventCount:    len(s.History),
	})

	return decision, nil
}

// decide evaluates the trigger conditions and assembles the decision.
// Triggers are not mutually exclusive: all matching actions are unioned,
// and their difficulty deltas are summed then clamped to the controller's
// adjustment-rate bound.
func (l *Loop) decide(
	s *session.State,
	e *session.LearningEvent,
	path *session.AdaptivePath,
	loadReading estimator.LoadReading,
	engagement shared.Score,
	elapsed time.Duration,
) session.AdaptiveDecision {
	decision := session.AdaptiveDecision{
		SessionID:    s.ID,
		EventIndex:   len(s.History) - 1,
		SupportLevel: shared.SupportLevel(path.Scaffolding),
		Degraded:     s.Degraded,
		Diagnostics:  loadReading.Anomalies,
		NextProblem: session.NextProblemSpec{
			Subject:     e.Subject,
			Topic:       e.Topic,
			Difficulty:  path.RecommendedDifficulty,
			Scaffolding: path.Scaffolding,
		},
	}

	triggerDelta := 0.0
	sessionAvgAccuracy := s.AvgAccuracy(0)
	windowAccuracy := s.AvgAccuracy(l.triggers.TrendWindow)
	windowResponse := s.AvgResponseTimeMs(l.triggers.TrendWindow)

	// Fatigue: long session with sagging accuracy.
	if elapsed.Minutes() > float64(l.triggers.BreakAfterMin) && sessionAvgAccuracy < l.triggers.BreakAccuracy {
		decision.Actions = append(decision.Actions, session.ActionSuggestBreak)
		path.Complexity = lowerComplexity(path.Complexity)
		decision.Support.NextPrompt = "prompt:take_a_break"
	}

	// Frustration: too many error-class signals this session.
	if s.Counters.FrustrationSignals > l.triggers.FrustrationLimit {
		decision.Actions = append(decision.Actions, session.ActionEncourage)
		decision.SupportLevel = 4
		path.Scaffolding = raiseScaffolding(path.Scaffolding)
		decision.NextProblem.Scaffolding = path.Scaffolding
		triggerDelta -= 1
		decision.Support.Encouragement = "encouragement:frustration"
	}

	// Disengagement: gamify the next problem.
	if engagement.Int() < l.triggers.EngagementFloor {
		decision.Actions = append(decision.Actions, session.ActionGamifyNext)
		decision.NextProblem.Interactive = true
		decision.NextProblem.Novelty++
	}

	// Mastery: fast and accurate, raise the challenge.
	if windowAccuracy > l.triggers.MasteryAccuracy && windowResponse > 0 && windowResponse < l.triggers.MasteryResponseMs {
		decision.Actions = append(decision.Actions, session.ActionRaiseChallenge)
		triggerDelta += 1
		path.Strategies = append(path.Strategies, "extension_problems")
	}

	// Support slots activate as content keys; the content layer resolves
	// them into prose.
	if path.Scaffolding >= shared.ScaffoldingMid {
		decision.Support.Hint = "hint:scaffolded"
	}
	for _, flag := range loadReading.Metrics.OverloadFlags {
		if flag.Reason == session.OverloadAccuracyCollapse {
			decision.Support.Clarification = "clarification:review_basics"
			break
		}
	}

	rawDelta := (path.TargetDifficulty - float64(e.Difficulty)) + triggerDelta
	decision.DifficultyChange = shared.ClampFloat(rawDelta, -path.AdjustmentRate, path.AdjustmentRate)

	return decision
}

// lowerComplexity steps complexity down one notch, floored at 1.
func lowerComplexity(c int) int {
	if c > 1 {
		return c - 1
	}
	return 1
}

// raiseScaffolding steps scaffolding up one level, capped at max support.
func raiseScaffolding(s shared.ScaffoldingLevel) shared.ScaffoldingLevel {
	if s < shared.ScaffoldingMax {
		return s + 1
	}
	return s
}
