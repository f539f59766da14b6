package profilestore

import (
	"time"

	"github.com/examprep-hub/learner-engine/internal/domain/learner"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// MAPPER - DTO to domain conversion
// ══════════════════════════════════════════════════════════════════════════════

// Mapper converts profile service DTOs into domain objects.
type Mapper struct{}

// NewMapper creates a new Mapper.
func NewMapper() *Mapper {
	return &Mapper{}
}

// ProfileFromDTO converts a ProfileDTO into a domain Profile. Unknown
// subjects and out-of-range levels are dropped rather than failing the whole
// snapshot; the domain defaults cover the gaps.
func (m *Mapper) ProfileFromDTO(dto *ProfileDTO, fetchedAt time.Time) (*learner.Profile, error) {
	id := shared.LearnerID(dto.LearnerID)
	if !id.IsValid() {
		return nil, shared.ErrInvalidLearnerID
	}

	grade := shared.GradeLevel(dto.Grade)
	if !grade.IsValid() {
		grade = 6
	}

	proficiency := make(map[shared.Subject]learner.SubjectProficiency, len(dto.Proficiency))
	for subjectName, p := range dto.Proficiency {
		subject := shared.Subject(subjectName)
		if !subject.IsValid() {
			continue
		}
		current := shared.Difficulty(p.CurrentLevel)
		target := shared.Difficulty(p.TargetLevel)
		if !current.IsValid() || !target.IsValid() {
			continue
		}
		proficiency[subject] = learner.SubjectProficiency{
			Current: current,
			Target:  target,
		}
	}

	preference := learner.DifficultyPreference(dto.Preferences.DifficultyPreference)
	if !preference.IsValid() {
		preference = learner.PreferBalanced
	}

	sessionLength := dto.Preferences.SessionLengthMin
	if sessionLength <= 0 {
		sessionLength = 30
	}

	profile := &learner.Profile{
		ID:          id,
		DisplayName: dto.DisplayName,
		Grade:       grade,
		Proficiency: proficiency,
		Preferences: learner.Preferences{
			SessionLengthMin: sessionLength,
			Difficulty:       preference,
		},
		FetchedAt: fetchedAt,
	}

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return profile, nil
}
