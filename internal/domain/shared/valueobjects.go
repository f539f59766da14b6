// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"fmt"
	"math"
	"regexp"
)

// ═══════════════════════════════════════════════════════════════════════════
// ID Value Objects
// ═══════════════════════════════════════════════════════════════════════════

// LearnerID represents a unique learner identifier in the Profile Store.
type LearnerID string

// Regular expression for valid learner ID format.
var learnerIDRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{2,63}$`)

// IsValid checks if the learner ID is valid.
func (l LearnerID) IsValid() bool {
	return learnerIDRegex.MatchString(string(l))
}

// String returns the string representation.
func (l LearnerID) String() string {
	return string(l)
}

// NewLearnerID creates a new LearnerID with validation.
func NewLearnerID(id string) (LearnerID, error) {
	l := LearnerID(id)
	if !l.IsValid() {
		return "", ErrInvalidLearnerID
	}
	return l, nil
}

// SessionID represents a unique live-session identifier (uuid v4, minted at Open).
type SessionID string

// IsValid checks if the session ID is non-empty.
func (s SessionID) IsValid() bool {
	return s != ""
}

// String returns the string representation.
func (s SessionID) String() string {
	return string(s)
}

// ProblemID identifies a single problem served by the Content Catalog.
type ProblemID string

// IsValid checks if the problem ID is non-empty.
func (p ProblemID) IsValid() bool {
	return p != ""
}

// String returns the string representation.
func (p ProblemID) String() string {
	return string(p)
}

// ═══════════════════════════════════════════════════════════════════════════
// Subject / Topic
// ═══════════════════════════════════════════════════════════════════════════

// Subject represents an exam subject.
type Subject string

const (
	SubjectMath     Subject = "math"
	SubjectJapanese Subject = "japanese"
	SubjectScience  Subject = "science"
	SubjectSocial   Subject = "social"
	SubjectEnglish  Subject = "english"
)

// KnownSubjects lists every subject the engine accepts.
func KnownSubjects() []Subject {
	return []Subject{SubjectMath, SubjectJapanese, SubjectScience, SubjectSocial, SubjectEnglish}
}

// IsValid checks if the subject is one of the known subjects.
func (s Subject) IsValid() bool {
	switch s {
	case SubjectMath, SubjectJapanese, SubjectScience, SubjectSocial, SubjectEnglish:
		return true
	}
	return false
}

// String returns the string representation.
func (s Subject) String() string {
	return string(s)
}

// Topic is a free-form topic label within a subject (e.g. "speed-distance", "fractions").
type Topic string

// IsValid checks if the topic is non-empty.
func (t Topic) IsValid() bool {
	return t != ""
}

// String returns the string representation.
func (t Topic) String() string {
	return string(t)
}

// ═══════════════════════════════════════════════════════════════════════════
// Bounded numeric value objects
// ═══════════════════════════════════════════════════════════════════════════

// Difficulty is a problem difficulty on the 1..10 scale.
type Difficulty int

const (
	MinDifficulty Difficulty = 1
	MaxDifficulty Difficulty = 10
)

// IsValid checks if the difficulty is inside 1..10.
func (d Difficulty) IsValid() bool {
	return d >= MinDifficulty && d <= MaxDifficulty
}

// Clamp forces the difficulty into 1..10.
func (d Difficulty) Clamp() Difficulty {
	if d < MinDifficulty {
		return MinDifficulty
	}
	if d > MaxDifficulty {
		return MaxDifficulty
	}
	return d
}

// Int returns the underlying int value.
func (d Difficulty) Int() int {
	return int(d)
}

// Confidence is a learner's self-reported confidence on the 1..5 scale.
type Confidence int

const (
	MinConfidence Confidence = 1
	MaxConfidence Confidence = 5
)

// IsValid checks if the confidence is inside 1..5.
func (c Confidence) IsValid() bool {
	return c >= MinConfidence && c <= MaxConfidence
}

// Normalized maps the 1..5 rating onto 0.2..1.0.
func (c Confidence) Normalized() float64 {
	return float64(c) / float64(MaxConfidence)
}

// Score is a bounded 0..100 metric value. Every estimator output is a Score.
type Score int

// IsValid checks if the score is inside 0..100.
func (s Score) IsValid() bool {
	return s >= 0 && s <= 100
}

// Int returns the underlying int value.
func (s Score) Int() int {
	return int(s)
}

// NewScore rounds and clamps a raw float into a valid Score.
// Non-finite inputs collapse to 0 so a single bad division can never
// poison a snapshot (the caller records the anomaly separately).
func NewScore(raw float64) Score {
	if math.IsNaN(raw) || math.IsInf(raw, 0) {
		return 0
	}
	v := int(math.Round(raw))
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return Score(v)
}

// ScaffoldingLevel is the 0..3 structured-support level for the next problem.
type ScaffoldingLevel int

const (
	ScaffoldingNone ScaffoldingLevel = 0
	ScaffoldingLow  ScaffoldingLevel = 1
	ScaffoldingMid  ScaffoldingLevel = 2
	ScaffoldingMax  ScaffoldingLevel = 3
)

// IsValid checks if the scaffolding level is inside 0..3.
func (s ScaffoldingLevel) IsValid() bool {
	return s >= ScaffoldingNone && s <= ScaffoldingMax
}

// SupportLevel is the 0..5 intensity of immediate tutoring support.
type SupportLevel int

// IsValid checks if the support level is inside 0..5.
func (s SupportLevel) IsValid() bool {
	return s >= 0 && s <= 5
}

// GradeLevel is the learner's school grade (1..9 covers the exam-prep range).
type GradeLevel int

// IsValid checks if the grade level is plausible.
func (g GradeLevel) IsValid() bool {
	return g >= 1 && g <= 9
}

// ═══════════════════════════════════════════════════════════════════════════
// Float helpers
// ═══════════════════════════════════════════════════════════════════════════

// ClampFloat forces v into [lo, hi]. Non-finite v collapses to lo.
func ClampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SafeDiv divides a by b, returning fallback when b is zero or the
// result would be non-finite.
func SafeDiv(a, b, fallback float64) float64 {
	if b == 0 {
		return fallback
	}
	v := a / b
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}

// Range is an inclusive [Lower, Upper] int interval (ZPD windows, optimal load band).
type Range struct {
	Lower int `json:"lower"`
	Upper int `json:"upper"`
}

// Contains reports whether v falls inside the range.
func (r Range) Contains(v int) bool {
	return v >= r.Lower && v <= r.Upper
}

// String returns "[lower, upper]".
func (r Range) String() string {
	return fmt.Sprintf("[%d, %d]", r.Lower, r.Upper)
}
