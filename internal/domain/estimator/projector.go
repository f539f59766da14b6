package estimator

import (
	"math"
	"sort"

	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// TopicProjection estimates remaining practice time for one topic.
type TopicProjection struct {
	Topic shared.Topic `json:"topic"`

	// MinutesToMastery - estimated remaining practice minutes.
	MinutesToMastery int `json:"minutes_to_mastery"`

	// Accuracy - observed accuracy on this topic so far.
	Accuracy float64 `json:"accuracy"`
}

// Projection is the read-only predictive output.
type Projection struct {
	SessionID shared.SessionID `json:"session_id"`

	// ExamReadiness - 0..100 extrapolated readiness score.
	ExamReadiness shared.Score `json:"exam_readiness"`

	// ReadinessBand - readiness ± the fixed confidence band, clamped.
	ReadinessBand shared.Range `json:"readiness_band"`

	// TimeToMastery - per-topic practice estimates, sorted by topic.
	TimeToMastery []TopicProjection `json:"time_to_mastery,omitempty"`

	// StrongAreas / RiskAreas - metric dimensions past their thresholds.
	StrongAreas []string `json:"strong_areas,omitempty"`
	RiskAreas   []string `json:"risk_areas,omitempty"`

	// SampleSize - events the projection is based on. Small samples mean
	// wide uncertainty; the band does not narrow with more data.
	SampleSize int `json:"sample_size"`
}

// Projector extrapolates exam readiness and time-to-mastery from a
// session's metric history. Read-only and stateless: it never mutates the
// state it reads.
type Projector struct {
	policy     ProjectionPolicy
	difficulty DifficultyPolicy
}

// NewProjector creates the projector with its policy rows.
func NewProjector(policy ProjectionPolicy, difficulty DifficultyPolicy) *Projector {
	return &Projector{policy: policy, difficulty: difficulty}
}

// Project computes the projection from the current session state.
func (p *Projector) Project(s *session.State) Projection {
	ability := p.currentAbility(s)
	readiness := shared.NewScore(float64(ability*10) + p.efficiencyBonus(s) + p.metacognitionBonus(s))

	band := shared.Range{
		Lower: max(0, readiness.Int()-p.policy.ConfidenceBand),
		Upper: min(100, readiness.Int()+p.policy.ConfidenceBand),
	}

	return Projection{
		SessionID:     s.ID,
		ExamReadiness: readiness,
		ReadinessBand: band,
		TimeToMastery: p.timeToMastery(s),
		StrongAreas:   p.strongAreas(s),
		RiskAreas:     p.riskAreas(s),
		SampleSize:    len(s.History),
	}
}

// currentAbility mirrors the controller's rolling-window ability estimate.
func (p *Projector) currentAbility(s *session.State) int {
	window := s.Series.Accuracy
	if w := p.difficulty.Window; w > 0 && len(window) > w {
		window = window[len(window)-w:]
	}
	if len(window) == 0 {
		return 5
	}
	sum := 0.0
	for _, a := range window {
		sum += a
	}
	ability := int(math.Round(10 * sum / float64(len(window))))
	if ability < 1 {
		ability = 1
	}
	if ability > 10 {
		ability = 10
	}
	return ability
}

// efficiencyBonus rewards fast, settled responding.
func (p *Projector) efficiencyBonus(s *session.State) float64 {
	avg := s.AvgResponseTimeMs(p.difficulty.Window)
	if avg == 0 {
		return 0
	}
	if avg < p.policy.EfficiencyFastMs {
		return p.policy.EfficiencyFast
	}
	if avg < p.policy.EfficiencyMs {
		return p.policy.Efficiency
	}
	return 0
}

// metacognitionBonus converts the six-score mean into readiness points.
func (p *Projector) metacognitionBonus(s *session.State) float64 {
	return s.Metrics.Metacognition.Mean() / 10
}

// timeToMastery estimates remaining minutes per topic seen this session:
// baseMinutes / accelerationFactor, where acceleration grows with the
// topic's acquisition speed (accuracy improvement per event).
func (p *Projector) timeToMastery(s *session.State) []TopicProjection {
	type topicStats struct {
		accuracy []float64
	}
	byTopic := make(map[shared.Topic]*topicStats)
	for i := range s.History {
		e := &s.History[i]
		st := byTopic[e.Topic]
		if st == nil {
			st = &topicStats{}
			byTopic[e.Topic] = st
		}
		st.accuracy = append(st.accuracy, e.Accuracy())
	}

	out := make([]TopicProjection, 0, len(byTopic))
	for topic, st := range byTopic {
		acc := mean(st.accuracy)
		acceleration := shared.ClampFloat(1+improvementRate(st.accuracy)*2+acc/2, 0.5, 2.5)
		minutes := int(math.Round(p.policy.BaseMinutesPerTopic / acceleration * (1 - acc)))
		if minutes < 0 {
			minutes = 0
		}
		out = append(out, TopicProjection{
			Topic:            topic,
			MinutesToMastery: minutes,
			Accuracy:         acc,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Topic < out[j].Topic })
	return out
}

// strongAreas lists metric dimensions above the strength threshold.
func (p *Projector) strongAreas(s *session.State) []string {
	var areas []string
	m := &s.Metrics
	th := p.policy.StrengthThreshold
	if m.Comprehension.Strategic.Int() > th {
		areas = append(areas, "strategic_comprehension")
	}
	if m.Comprehension.Deep.Int() > th {
		areas = append(areas, "deep_comprehension")
	}
	if m.Metacognition.Evaluation.Int() > th {
		areas = append(areas, "self_evaluation")
	}
	if m.Motivation.Intrinsic.Int() > th {
		areas = append(areas, "intrinsic_motivation")
	}
	if m.Motivation.Flow.Int() > th {
		areas = append(areas, "flow")
	}
	return areas
}

// riskAreas lists metric dimensions past their risk thresholds.
func (p *Projector) riskAreas(s *session.State) []string {
	var areas []string
	m := &s.Metrics
	th := p.policy.RiskThreshold
	if len(s.History) > 0 && m.Comprehension.Deep.Int() < th {
		areas = append(areas, "shallow_comprehension")
	}
	if m.Motivation.Anxiety.Int() > 100-th {
		areas = append(areas, "anxiety")
	}
	if m.CognitiveLoad.Level.Int() > m.CognitiveLoad.OptimalRange.Upper {
		areas = append(areas, "cognitive_overload")
	}
	if len(s.History) > 0 && m.Motivation.Engagement().Int() < th {
		areas = append(areas, "low_engagement")
	}
	return areas
}
