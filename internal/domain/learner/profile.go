// Package learner contains the read-only learner profile model and the ports
// to the external Learner Profile Store. The engine never owns this data: a
// profile is snapshotted once at session open and stays immutable afterwards.
package learner

import (
	"time"

	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// SubjectProficiency holds the current and target proficiency for one subject.
type SubjectProficiency struct {
	// Current proficiency on the 1..10 difficulty scale.
	Current shared.Difficulty `json:"current"`

	// Target proficiency required by the learner's chosen exam.
	Target shared.Difficulty `json:"target"`
}

// DifficultyPreference expresses how a learner likes challenge ramped.
type DifficultyPreference string

const (
	PreferGradual   DifficultyPreference = "gradual"
	PreferBalanced  DifficultyPreference = "balanced"
	PreferChallenge DifficultyPreference = "challenge"
)

// IsValid checks if the preference is one of the known values.
func (p DifficultyPreference) IsValid() bool {
	switch p {
	case PreferGradual, PreferBalanced, PreferChallenge:
		return true
	}
	return false
}

// Preferences holds learning preferences from the Profile Store.
type Preferences struct {
	// SessionLengthMin is the preferred session length in minutes.
	SessionLengthMin int `json:"session_length_min"`

	// Difficulty ramp preference.
	Difficulty DifficultyPreference `json:"difficulty"`
}

// Profile is a snapshot of a learner's long-lived identity and preference
// data, owned by the external Profile Store. Immutable for the lifetime of a
// session; refreshed only at session open.
type Profile struct {
	// ID - learner identifier in the Profile Store.
	ID shared.LearnerID `json:"id"`

	// DisplayName - name shown by the presentation layer; opaque to the engine.
	DisplayName string `json:"display_name"`

	// Grade - school grade level.
	Grade shared.GradeLevel `json:"grade"`

	// Proficiency per subject.
	Proficiency map[shared.Subject]SubjectProficiency `json:"proficiency"`

	// Preferences - learning preferences.
	Preferences Preferences `json:"preferences"`

	// FetchedAt - when this snapshot was taken from the store.
	FetchedAt time.Time `json:"fetched_at"`
}

// Validate checks structural validity of a profile snapshot.
func (p *Profile) Validate() error {
	if !p.ID.IsValid() {
		return shared.ErrInvalidLearnerID
	}
	if !p.Grade.IsValid() {
		return shared.NewDomainError("learner", "Validate", shared.ErrValueOutOfRange, "grade level out of range")
	}
	for subj, prof := range p.Proficiency {
		if !subj.IsValid() {
			return shared.ErrUnknownSubject
		}
		if !prof.Current.IsValid() || !prof.Target.IsValid() {
			return shared.NewDomainError("learner", "Validate", shared.ErrValueOutOfRange, "proficiency out of range")
		}
	}
	return nil
}

// ProficiencyFor returns the proficiency for a subject, defaulting to a
// mid-scale estimate when the store has no record for it.
func (p *Profile) ProficiencyFor(subject shared.Subject) SubjectProficiency {
	if prof, ok := p.Proficiency[subject]; ok {
		return prof
	}
	return SubjectProficiency{Current: 5, Target: 7}
}

// DefaultProfile returns the fallback profile used when the Profile Store is
// unreachable and no cached snapshot exists. Sessions built on it run with
// degraded=true on every decision.
func DefaultProfile(id shared.LearnerID) *Profile {
	return &Profile{
		ID:          id,
		DisplayName: "",
		Grade:       6,
		Proficiency: map[shared.Subject]SubjectProficiency{},
		Preferences: Preferences{
			SessionLengthMin: 30,
			Difficulty:       PreferBalanced,
		},
		FetchedAt: time.Now().UTC(),
	}
}
