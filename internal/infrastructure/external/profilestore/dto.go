package profilestore

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// DATA TRANSFER OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ProfileDTO is the wire representation of a learner profile.
type ProfileDTO struct {
	LearnerID   string                    `json:"learner_id"`
	DisplayName string                    `json:"display_name"`
	Grade       int                       `json:"grade"`
	Proficiency map[string]ProficiencyDTO `json:"proficiency"`
	Preferences PreferencesDTO            `json:"preferences"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

// ProficiencyDTO carries per-subject levels on a 1-10 scale.
type ProficiencyDTO struct {
	CurrentLevel int `json:"current_level"`
	TargetLevel  int `json:"target_level"`
}

// PreferencesDTO carries learning preferences.
type PreferencesDTO struct {
	SessionLengthMin     int    `json:"session_length_min"`
	DifficultyPreference string `json:"difficulty_preference"`
}

// APIErrorDTO is the error envelope the profile service returns.
type APIErrorDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *APIErrorDTO) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}
