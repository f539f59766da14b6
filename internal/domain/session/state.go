package session

import (
	"time"

	"github.com/examprep-hub/learner-engine/internal/domain/learner"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// TimeSeries holds the per-event metric series used for trend and
// regulation computations. Each slice grows by exactly one entry per
// accepted event.
type TimeSeries struct {
	Accuracy       []float64 `json:"accuracy"`
	ResponseTimeMs []int64   `json:"response_time_ms"`
	CognitiveLoad  []int     `json:"cognitive_load"`
	Engagement     []int     `json:"engagement"`
}

// BehavioralCounters accumulate motivation-relevant behavior over the
// session. Derived purely from accepted events, so a replayed session
// reproduces them exactly.
type BehavioralCounters struct {
	// Extensions - voluntary session extensions.
	Extensions int `json:"extensions"`

	// HelpRequests - help-seeking count.
	HelpRequests int `json:"help_requests"`

	// EasyChosen / MediumChosen / HardChosen - challenge-choice counts.
	EasyChosen   int `json:"easy_chosen"`
	MediumChosen int `json:"medium_chosen"`
	HardChosen   int `json:"hard_chosen"`

	// PositiveExpressions / NegativeExpressions - self-expression counts.
	PositiveExpressions int `json:"positive_expressions"`
	NegativeExpressions int `json:"negative_expressions"`

	// PersistenceMin - minutes spent on problems at or above difficulty 7.
	PersistenceMin float64 `json:"persistence_min"`

	// FrustrationSignals - error-class struggling indicators plus
	// negative expressions, summed over the session.
	FrustrationSignals int `json:"frustration_signals"`
}

// hardProblemThreshold marks the difficulty at which time spent counts as
// persistence.
const hardProblemThreshold shared.Difficulty = 7

// record folds one accepted event into the counters.
func (c *BehavioralCounters) record(e *LearningEvent) {
	if e.VoluntaryExtension {
		c.Extensions++
	}
	if e.HelpRequested {
		c.HelpRequests++
	}
	switch e.ChallengeChoice {
	case ChallengeEasy:
		c.EasyChosen++
	case ChallengeMedium:
		c.MediumChosen++
	case ChallengeHard:
		c.HardChosen++
	}
	switch e.Expression {
	case TonePositive:
		c.PositiveExpressions++
	case ToneNegative:
		c.NegativeExpressions++
	}
	if e.Difficulty >= hardProblemThreshold {
		c.PersistenceMin += float64(e.ResponseTimeMs) / 60000.0
	}
	for _, ind := range e.Struggling {
		if ind.IsErrorSignal() {
			c.FrustrationSignals++
		}
	}
	if e.Expression == ToneNegative {
		c.FrustrationSignals++
	}
}

// State is the full per-session state, owned exclusively by the Session
// Manager for that session ID. Mutated only through Append and Close.
type State struct {
	// ID - session identifier minted at Open.
	ID shared.SessionID `json:"id"`

	// Learner - immutable profile snapshot taken at Open.
	Learner *learner.Profile `json:"learner"`

	// Subject the session was opened for.
	Subject shared.Subject `json:"subject"`

	// Degraded - the profile snapshot came from cache or defaults.
	Degraded bool `json:"degraded"`

	// OpenedAt / ClosedAt - lifecycle timestamps.
	OpenedAt time.Time  `json:"opened_at"`
	ClosedAt *time.Time `json:"closed_at,omitempty"`

	// Status - Open or Closed.
	Status Status `json:"status"`

	// History - ordered, append-only accepted events.
	History []LearningEvent `json:"history"`

	// Series - per-event metric time series.
	Series TimeSeries `json:"series"`

	// Counters - behavioral counters for the motivation estimator.
	Counters BehavioralCounters `json:"counters"`

	// Metrics - the running snapshot, replaced wholesale per event.
	Metrics MetricsSnapshot `json:"metrics"`
}

// NewState opens a fresh session state around a profile snapshot.
func NewState(id shared.SessionID, profile *learner.Profile, subject shared.Subject, degraded bool, openedAt time.Time) *State {
	return &State{
		ID:       id,
		Learner:  profile,
		Subject:  subject,
		Degraded: degraded,
		OpenedAt: openedAt,
		Status:   StatusOpen,
	}
}

// IsOpen reports whether the session still accepts events.
func (s *State) IsOpen() bool {
	return s.Status == StatusOpen
}

// ElapsedAt returns the session duration at the given instant, measured
// from the first accepted event so a replayed event sequence reproduces
// identical estimator inputs. Zero before the first event.
func (s *State) ElapsedAt(ts time.Time) time.Duration {
	if len(s.History) == 0 {
		return 0
	}
	d := ts.Sub(s.History[0].Timestamp)
	if d < 0 {
		return 0
	}
	return d
}

// Append accepts a validated event into the history and updates the
// behavioral counters. The caller holds the session lock and has already
// run Normalize and Validate; Append never fails on an open session.
func (s *State) Append(e LearningEvent) error {
	if !s.IsOpen() {
		return shared.ErrSessionClosed
	}
	e.SessionID = s.ID
	s.History = append(s.History, e)
	s.Counters.record(&e)
	return nil
}

// RecordOutcome appends the event's accuracy and response time. Called
// before the difficulty controller runs so its rolling window includes
// the current event.
func (s *State) RecordOutcome(accuracy float64, responseTimeMs int64) {
	s.Series.Accuracy = append(s.Series.Accuracy, accuracy)
	s.Series.ResponseTimeMs = append(s.Series.ResponseTimeMs, responseTimeMs)
}

// RecordEstimates appends the estimator outputs for the same event,
// completing the point RecordOutcome started.
func (s *State) RecordEstimates(load int, engagement int) {
	s.Series.CognitiveLoad = append(s.Series.CognitiveLoad, load)
	s.Series.Engagement = append(s.Series.Engagement, engagement)
}

// ReplaceMetrics installs a freshly computed snapshot.
func (s *State) ReplaceMetrics(m MetricsSnapshot) {
	s.Metrics = m
}

// Close transitions the session to Closed. Idempotence is enforced by the
// manager; calling Close on an already-closed state returns ErrSessionClosed
// without mutation.
func (s *State) Close(at time.Time) error {
	if !s.IsOpen() {
		return shared.ErrSessionClosed
	}
	s.Status = StatusClosed
	closedAt := at
	s.ClosedAt = &closedAt
	return nil
}

// AvgAccuracy returns the mean of the last n accuracy points (all points
// when n <= 0 or fewer exist). Zero with no history.
func (s *State) AvgAccuracy(n int) float64 {
	return tailMean(s.Series.Accuracy, n)
}

// AvgResponseTimeMs returns the mean of the last n response times.
func (s *State) AvgResponseTimeMs(n int) float64 {
	pts := s.Series.ResponseTimeMs
	if n > 0 && len(pts) > n {
		pts = pts[len(pts)-n:]
	}
	if len(pts) == 0 {
		return 0
	}
	var sum int64
	for _, v := range pts {
		sum += v
	}
	return float64(sum) / float64(len(pts))
}

// tailMean averages the last n float points (all when n <= 0).
func tailMean(pts []float64, n int) float64 {
	if n > 0 && len(pts) > n {
		pts = pts[len(pts)-n:]
	}
	if len(pts) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range pts {
		sum += v
	}
	return sum / float64(len(pts))
}
