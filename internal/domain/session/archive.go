package session

import (
	"context"
	"time"

	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// ArchiveRecord is the single immutable record handed to the external
// archival sink when a session closes.
type ArchiveRecord struct {
	SessionID shared.SessionID `json:"session_id"`
	LearnerID shared.LearnerID `json:"learner_id"`
	Subject   shared.Subject   `json:"subject"`
	Degraded  bool             `json:"degraded"`

	OpenedAt time.Time `json:"opened_at"`
	ClosedAt time.Time `json:"closed_at"`

	// History - the full accepted event history.
	History []LearningEvent `json:"history"`

	// Series - the per-event metric series.
	Series TimeSeries `json:"series"`

	// FinalMetrics - the snapshot at close; never changes afterwards.
	FinalMetrics MetricsSnapshot `json:"final_metrics"`
}

// NewArchiveRecord builds the archive record from a closed session state.
func NewArchiveRecord(s *State) ArchiveRecord {
	closedAt := time.Time{}
	if s.ClosedAt != nil {
		closedAt = *s.ClosedAt
	}
	return ArchiveRecord{
		SessionID:    s.ID,
		LearnerID:    s.Learner.ID,
		Subject:      s.Subject,
		Degraded:     s.Degraded,
		OpenedAt:     s.OpenedAt,
		ClosedAt:     closedAt,
		History:      s.History,
		Series:       s.Series,
		FinalMetrics: s.Metrics,
	}
}

// Archiver is the port to the write-only archival sink. Delivery is
// fire-and-forget with local buffering; a failed write must never roll back
// or block session closure.
type Archiver interface {
	Archive(ctx context.Context, record ArchiveRecord) error
}
