package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/examprep-hub/learner-engine/internal/domain/estimator"
	"github.com/examprep-hub/learner-engine/internal/domain/learner"
	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
	"github.com/examprep-hub/learner-engine/pkg/retry"
)

// Publisher is the manager's port to the event bus.
type Publisher interface {
	Publish(event shared.Event) error
}

// ManagerConfig contains the manager's tuning knobs.
type ManagerConfig struct {
	// ProfileLookupTimeout bounds a single Profile Store attempt.
	ProfileLookupTimeout time.Duration

	// ProfileLookupAttempts bounds the retry loop at Open.
	ProfileLookupAttempts int

	// ProfileCacheTTL - how long a fetched profile stays cached as the
	// last-known-good fallback.
	ProfileCacheTTL time.Duration

	// Logger for structured logging.
	Logger *slog.Logger

	// Clock - injectable time source for tests.
	Clock func() time.Time
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		ProfileLookupTimeout:  3 * time.Second,
		ProfileLookupAttempts: 3,
		ProfileCacheTTL:       24 * time.Hour,
	}
}

// managedSession pairs a session state with its own lock. Operations on
// different sessions never contend; events for one session serialize on
// this mutex, which also gives arrival-order processing per session.
type managedSession struct {
	mu    sync.Mutex
	state *session.State
}

// Manager owns the map of live sessions and their lifecycle. The only
// blocking external calls happen at Open (profile lookup) and Close
// (archival handoff); the estimation pipeline itself never blocks.
type Manager struct {
	mu       sync.RWMutex
	sessions map[shared.SessionID]*managedSession

	profiles learner.Store
	cache    learner.Cache
	archiver session.Archiver
	bus      Publisher

	loop      *Loop
	projector *estimator.Projector

	config ManagerConfig
	logger *slog.Logger
	clock  func() time.Time
}

// NewManager creates a session manager around its collaborators. cache,
// archiver, and bus may be nil (degraded-only fallback, dropped archives,
// and silent events respectively) to keep tests and minimal deployments
// simple.
func NewManager(
	policy estimator.Policy,
	profiles learner.Store,
	cache learner.Cache,
	archiver session.Archiver,
	bus Publisher,
	config ManagerConfig,
) *Manager {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}
	if config.ProfileLookupAttempts <= 0 {
		config.ProfileLookupAttempts = 3
	}
	if config.ProfileLookupTimeout <= 0 {
		config.ProfileLookupTimeout = 3 * time.Second
	}

	return &Manager{
		sessions:  make(map[shared.SessionID]*managedSession),
		profiles:  profiles,
		cache:     cache,
		archiver:  archiver,
		bus:       bus,
		loop:      NewLoop(policy),
		projector: estimator.NewProjector(policy.Projection, policy.Difficulty),
		config:    config,
		logger:    config.Logger,
		clock:     config.Clock,
	}
}

// OpenResult is returned by Open.
type OpenResult struct {
	SessionID shared.SessionID

	// Degraded - the profile snapshot came from cache or defaults.
	Degraded bool
}

// Open starts a new session for a learner. The profile lookup retries with
// bounded backoff; when the store stays unreachable it falls back to the
// cached last-known-good profile, then to a default profile, and marks the
// session degraded instead of failing.
func (m *Manager) Open(ctx context.Context, learnerID shared.LearnerID, subject shared.Subject) (OpenResult, error) {
	if !learnerID.IsValid() {
		return OpenResult{}, shared.ErrInvalidLearnerID
	}
	if !subject.IsValid() {
		return OpenResult{}, shared.ErrUnknownSubject
	}

	profile, degraded := m.fetchProfile(ctx, learnerID)

	id := shared.SessionID(uuid.NewString())
	state := session.NewState(id, profile, subject, degraded, m.clock())

	m.mu.Lock()
	m.sessions[id] = &managedSession{state: state}
	m.mu.Unlock()

	m.publish(shared.NewSessionOpenedEvent(id.String(), learnerID.String(), subject.String(), degraded))
	m.logger.Info("session opened",
		"session_id", id.String(),
		"learner_id", learnerID.String(),
		"subject", subject.String(),
		"degraded", degraded)

	return OpenResult{SessionID: id, Degraded: degraded}, nil
}

// fetchProfile resolves the learner profile with retry, cache fallback, and
// default fallback, in that order. Never fails; the bool reports degraded.
func (m *Manager) fetchProfile(ctx context.Context, learnerID shared.LearnerID) (*learner.Profile, bool) {
	profile, err := retry.DoWithData(ctx, func(ctx context.Context) (*learner.Profile, error) {
		attemptCtx, cancel := context.WithTimeout(ctx, m.config.ProfileLookupTimeout)
		defer cancel()
		p, err := m.profiles.GetProfile(attemptCtx, learnerID)
		if err != nil {
			if shared.IsRetryable(err) || attemptCtx.Err() != nil {
				return nil, retry.Retryable(err)
			}
			return nil, retry.Permanent(err)
		}
		return p, nil
	},
		retry.WithMaxAttempts(m.config.ProfileLookupAttempts),
		retry.WithInitialDelay(200*time.Millisecond),
	)
	if err == nil && profile != nil {
		if cacheErr := m.cacheProfile(ctx, profile); cacheErr != nil {
			m.logger.Warn("profile cache write failed", "learner_id", learnerID.String(), "error", cacheErr)
		}
		return profile, false
	}

	m.logger.Warn("profile lookup failed, falling back",
		"learner_id", learnerID.String(),
		"error", err)

	if m.cache != nil {
		if cached, cacheErr := m.cache.Get(ctx, learnerID); cacheErr == nil && cached != nil {
			m.publish(shared.NewProfileLookupDegradedEvent(learnerID.String(), "cached profile"))
			return cached, true
		}
	}

	m.publish(shared.NewProfileLookupDegradedEvent(learnerID.String(), "default profile"))
	return learner.DefaultProfile(learnerID), true
}

// cacheProfile stores the last-known-good snapshot.
func (m *Manager) cacheProfile(ctx context.Context, profile *learner.Profile) error {
	if m.cache == nil {
		return nil
	}
	return m.cache.Set(ctx, profile, m.config.ProfileCacheTTL)
}

// ProcessEvent runs the adaptation loop for one event. Events for the same
// session process in arrival order under the session's own lock; sessions
// never block each other.
func (m *Manager) ProcessEvent(ctx context.Context, id shared.SessionID, event session.LearningEvent) (session.AdaptiveDecision, error) {
	ms, err := m.lookup(id)
	if err != nil {
		return session.AdaptiveDecision{}, err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	if !ms.state.IsOpen() {
		return session.AdaptiveDecision{}, shared.ErrSessionClosed
	}

	decision, err := m.loop.Run(ms.state, event, m.clock())
	if err != nil {
		return session.AdaptiveDecision{}, err
	}

	m.publish(shared.NewDecisionIssuedEvent(
		id.String(),
		event.ProblemID.String(),
		decision.ActionStrings(),
		decision.DifficultyChange,
		int(decision.SupportLevel),
		decision.Degraded,
	))
	for _, action := range decision.Actions {
		m.publish(shared.NewTriggerFiredEvent(id.String(), string(action)))
	}

	return decision, nil
}

// Snapshot returns the session's current metric snapshot.
func (m *Manager) Snapshot(id shared.SessionID) (session.MetricsSnapshot, error) {
	ms, err := m.lookup(id)
	if err != nil {
		return session.MetricsSnapshot{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.state.Metrics, nil
}

// Project computes a read-only predictive projection for the session.
// Valid on open and closed sessions alike.
func (m *Manager) Project(id shared.SessionID) (estimator.Projection, error) {
	ms, err := m.lookup(id)
	if err != nil {
		return estimator.Projection{}, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return m.projector.Project(ms.state), nil
}

// Close finalizes a session and hands its history to the archival sink.
// Closing is cooperative: an in-flight ProcessEvent finishes first because
// both serialize on the session lock. A second Close returns SessionClosed
// without touching the archived record. Archive failure never blocks or
// rolls back closure.
func (m *Manager) Close(ctx context.Context, id shared.SessionID) error {
	ms, err := m.lookup(id)
	if err != nil {
		return err
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()

	closedAt := m.clock()
	if err := ms.state.Close(closedAt); err != nil {
		return err
	}

	record := session.NewArchiveRecord(ms.state)
	if m.archiver != nil {
		if archiveErr := m.archiver.Archive(ctx, record); archiveErr != nil {
			m.logger.Error("archive handoff failed, record dropped from engine",
				"session_id", id.String(),
				"error", archiveErr)
		}
	}

	duration := int(closedAt.Sub(ms.state.OpenedAt).Seconds())
	m.publish(shared.NewSessionClosedEvent(id.String(), ms.state.Learner.ID.String(), len(ms.state.History), duration))
	m.logger.Info("session closed",
		"session_id", id.String(),
		"events", len(ms.state.History),
		"duration_sec", duration)

	return nil
}

// CloseAll closes every open session; used for graceful shutdown.
func (m *Manager) CloseAll(ctx context.Context) {
	m.mu.RLock()
	ids := make([]shared.SessionID, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		if err := m.Close(ctx, id); err != nil && !shared.IsClosed(err) {
			m.logger.Warn("close during shutdown failed", "session_id", id.String(), "error", err)
		}
	}
}

// SessionCount reports how many sessions (open or closed) the manager holds.
func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Grade returns the grade level from the session's profile snapshot.
func (m *Manager) Grade(id shared.SessionID) (shared.GradeLevel, error) {
	ms, err := m.lookup(id)
	if err != nil {
		return 0, err
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return ms.state.Learner.Grade, nil
}

// lookup finds a managed session or returns SessionNotFound.
func (m *Manager) lookup(id shared.SessionID) (*managedSession, error) {
	m.mu.RLock()
	ms, ok := m.sessions[id]
	m.mu.RUnlock()
	if !ok {
		return nil, shared.ErrSessionNotFound
	}
	return ms, nil
}

// publish sends an event to the bus, tolerating a nil bus and logging
// publish failures instead of propagating them into the pipeline.
func (m *Manager) publish(event shared.Event) {
	if m.bus == nil {
		return
	}
	if err := m.bus.Publish(event); err != nil {
		m.logger.Warn("event publish failed", "event_type", string(event.EventType()), "error", err)
	}
}
