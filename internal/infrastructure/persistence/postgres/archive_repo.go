package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
	"github.com/examprep-hub/learner-engine/pkg/retry"
)

// ══════════════════════════════════════════════════════════════════════════════
// ARCHIVE REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// ArchiveRepository writes closed-session records to the session_archive
// table. Implements session.Archiver.
type ArchiveRepository struct {
	conn *Connection
}

var _ session.Archiver = (*ArchiveRepository)(nil)

// NewArchiveRepository creates an ArchiveRepository.
func NewArchiveRepository(conn *Connection) *ArchiveRepository {
	return &ArchiveRepository{conn: conn}
}

// Archive inserts one record. Re-archiving the same session is idempotent:
// the first write wins and later ones are no-ops.
func (r *ArchiveRepository) Archive(ctx context.Context, record session.ArchiveRecord) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("%w: marshal record: %v", shared.ErrArchiveWriteFailed, err)
	}

	query := `
		INSERT INTO session_archive
			(session_id, learner_id, subject, degraded, opened_at, closed_at, event_count, record)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (session_id) DO NOTHING
	`

	_, err = r.conn.Exec(ctx, query,
		record.SessionID.String(),
		record.LearnerID.String(),
		record.Subject.String(),
		record.Degraded,
		record.OpenedAt,
		record.ClosedAt,
		len(record.History),
		payload,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrArchiveWriteFailed, err)
	}
	return nil
}

// CountForLearner returns how many archived sessions a learner has. Used by
// operational tooling, not the live engine.
func (r *ArchiveRepository) CountForLearner(ctx context.Context, learnerID shared.LearnerID) (int64, error) {
	var count int64
	err := r.conn.QueryRow(ctx,
		"SELECT COUNT(*) FROM session_archive WHERE learner_id = $1",
		learnerID.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count archived sessions: %w", err)
	}
	return count, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// BUFFERED WRITER
// ══════════════════════════════════════════════════════════════════════════════

// BufferedArchiver decouples session close from the database: Archive hands
// the record to an in-process buffer and returns immediately; a background
// worker drains the buffer with retries. When the buffer is full the record
// is dropped and logged, never blocking closure.
type BufferedArchiver struct {
	sink   session.Archiver
	logger *slog.Logger

	queue chan session.ArchiveRecord
	done  chan struct{}
	wg    sync.WaitGroup

	closeOnce sync.Once
}

var _ session.Archiver = (*BufferedArchiver)(nil)

// NewBufferedArchiver starts the background writer. bufferSize bounds the
// number of pending records.
func NewBufferedArchiver(sink session.Archiver, bufferSize int, logger *slog.Logger) *BufferedArchiver {
	if logger == nil {
		logger = slog.Default()
	}
	if bufferSize <= 0 {
		bufferSize = 256
	}

	b := &BufferedArchiver{
		sink:   sink,
		logger: logger,
		queue:  make(chan session.ArchiveRecord, bufferSize),
		done:   make(chan struct{}),
	}

	b.wg.Add(1)
	go b.run()

	return b
}

// Archive enqueues a record for background write.
func (b *BufferedArchiver) Archive(_ context.Context, record session.ArchiveRecord) error {
	select {
	case <-b.done:
		return fmt.Errorf("%w: archiver is shut down", shared.ErrArchiveWriteFailed)
	default:
	}

	select {
	case b.queue <- record:
		return nil
	default:
		return fmt.Errorf("%w: archive buffer full", shared.ErrArchiveWriteFailed)
	}
}

// Close stops accepting records, drains the buffer, and waits for the writer.
func (b *BufferedArchiver) Close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		close(b.done)
		close(b.queue)
	})

	finished := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(finished)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-finished:
		return nil
	}
}

// Pending returns the number of records waiting to be written.
func (b *BufferedArchiver) Pending() int {
	return len(b.queue)
}

func (b *BufferedArchiver) run() {
	defer b.wg.Done()

	for record := range b.queue {
		b.write(record)
	}
}

func (b *BufferedArchiver) write(record session.ArchiveRecord) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	err := retry.Do(ctx, func(ctx context.Context) error {
		if err := b.sink.Archive(ctx, record); err != nil {
			return retry.Retryable(err)
		}
		return nil
	}, retry.ArchiveOptions()...)

	if err != nil {
		b.logger.Error("archive write abandoned",
			"session_id", record.SessionID.String(),
			"learner_id", record.LearnerID.String(),
			"error", err)
		return
	}

	b.logger.Debug("session archived", "session_id", record.SessionID.String())
}
