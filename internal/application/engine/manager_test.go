package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examprep-hub/learner-engine/internal/domain/estimator"
	"github.com/examprep-hub/learner-engine/internal/domain/learner"
	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type fakeStore struct {
	mu      sync.Mutex
	profile *learner.Profile
	err     error
	calls   int
}

func (f *fakeStore) GetProfile(ctx context.Context, id shared.LearnerID) (*learner.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.profile, nil
}

type fakeCache struct {
	mu       sync.Mutex
	profiles map[shared.LearnerID]*learner.Profile
	sets     int
}

func newFakeCache() *fakeCache {
	return &fakeCache{profiles: make(map[shared.LearnerID]*learner.Profile)}
}

func (f *fakeCache) Get(ctx context.Context, id shared.LearnerID) (*learner.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p, ok := f.profiles[id]; ok {
		return p, nil
	}
	return nil, shared.ErrLearnerNotFound
}

func (f *fakeCache) Set(ctx context.Context, profile *learner.Profile, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	f.profiles[profile.ID] = profile
	return nil
}

type fakeArchiver struct {
	mu      sync.Mutex
	records []session.ArchiveRecord
	err     error
}

func (f *fakeArchiver) Archive(ctx context.Context, record session.ArchiveRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.records = append(f.records, record)
	return nil
}

type fakeBus struct {
	mu     sync.Mutex
	events []shared.Event
}

func (f *fakeBus) Publish(event shared.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeBus) byType(t shared.EventType) []shared.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []shared.Event
	for _, e := range f.events {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// HELPERS
// ══════════════════════════════════════════════════════════════════════════════

func testProfile(id shared.LearnerID) *learner.Profile {
	return &learner.Profile{
		ID:    id,
		Grade: 6,
		Proficiency: map[shared.Subject]learner.SubjectProficiency{
			shared.SubjectMath: {Current: 5, Target: 8},
		},
		Preferences: learner.Preferences{SessionLengthMin: 30, Difficulty: learner.PreferBalanced},
		FetchedAt:   time.Unix(1700000000, 0),
	}
}

func testManager(store learner.Store, cache learner.Cache, archiver session.Archiver, bus Publisher) *Manager {
	return NewManager(estimator.DefaultPolicy(), store, cache, archiver, bus, ManagerConfig{
		ProfileLookupAttempts: 1,
		ProfileLookupTimeout:  time.Second,
		Clock:                 func() time.Time { return time.Unix(1700000000, 0) },
	})
}

func managerEvent() session.LearningEvent {
	return session.LearningEvent{
		ProblemID:      "prob-1",
		Subject:        shared.SubjectMath,
		Topic:          "fractions",
		Difficulty:     5,
		Correct:        true,
		ResponseTimeMs: 20000,
		Confidence:     4,
		Timestamp:      time.Unix(1700000000, 0),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestManager_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{profile: testProfile("learner-1")}
	archiver := &fakeArchiver{}
	bus := &fakeBus{}
	m := testManager(store, nil, archiver, bus)

	opened, err := m.Open(ctx, "learner-1", shared.SubjectMath)
	require.NoError(t, err)
	assert.False(t, opened.Degraded)
	assert.True(t, opened.SessionID.IsValid())

	decision, err := m.ProcessEvent(ctx, opened.SessionID, managerEvent())
	require.NoError(t, err)
	assert.Equal(t, opened.SessionID, decision.SessionID)
	assert.Equal(t, 0, decision.EventIndex)
	assert.False(t, decision.Degraded)

	snapshot, err := m.Snapshot(opened.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, snapshot.EventCount)

	require.NoError(t, m.Close(ctx, opened.SessionID))
	require.Len(t, archiver.records, 1)
	record := archiver.records[0]
	assert.Equal(t, opened.SessionID, record.SessionID)
	assert.Equal(t, shared.LearnerID("learner-1"), record.LearnerID)
	assert.Len(t, record.History, 1)

	assert.Len(t, bus.byType(shared.EventSessionOpened), 1)
	assert.Len(t, bus.byType(shared.EventDecisionIssued), 1)
	assert.Len(t, bus.byType(shared.EventSessionClosed), 1)
}

func TestManager_OpenRejectsInvalidInput(t *testing.T) {
	ctx := context.Background()
	m := testManager(&fakeStore{profile: testProfile("learner-1")}, nil, nil, nil)

	_, err := m.Open(ctx, "!", shared.SubjectMath)
	assert.ErrorIs(t, err, shared.ErrInvalidLearnerID)

	_, err = m.Open(ctx, "learner-1", "astrology")
	assert.ErrorIs(t, err, shared.ErrUnknownSubject)
}

func TestManager_UnknownSession(t *testing.T) {
	ctx := context.Background()
	m := testManager(&fakeStore{profile: testProfile("learner-1")}, nil, nil, nil)

	_, err := m.ProcessEvent(ctx, "missing", managerEvent())
	assert.True(t, shared.IsNotFound(err))

	_, err = m.Snapshot("missing")
	assert.True(t, shared.IsNotFound(err))

	_, err = m.Project("missing")
	assert.True(t, shared.IsNotFound(err))

	assert.True(t, shared.IsNotFound(m.Close(ctx, "missing")))
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	archiver := &fakeArchiver{}
	m := testManager(&fakeStore{profile: testProfile("learner-1")}, nil, archiver, nil)

	opened, err := m.Open(ctx, "learner-1", shared.SubjectMath)
	require.NoError(t, err)

	require.NoError(t, m.Close(ctx, opened.SessionID))
	err = m.Close(ctx, opened.SessionID)
	assert.True(t, shared.IsClosed(err))
	// The archived record is written exactly once.
	assert.Len(t, archiver.records, 1)
}

func TestManager_EventsRejectedAfterClose(t *testing.T) {
	ctx := context.Background()
	m := testManager(&fakeStore{profile: testProfile("learner-1")}, nil, nil, nil)

	opened, err := m.Open(ctx, "learner-1", shared.SubjectMath)
	require.NoError(t, err)
	require.NoError(t, m.Close(ctx, opened.SessionID))

	_, err = m.ProcessEvent(ctx, opened.SessionID, managerEvent())
	assert.True(t, shared.IsClosed(err))

	// Snapshot and projection stay readable on a closed session.
	_, err = m.Snapshot(opened.SessionID)
	assert.NoError(t, err)
	_, err = m.Project(opened.SessionID)
	assert.NoError(t, err)
}

func TestManager_DegradedFallbackToCachedProfile(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	require.NoError(t, cache.Set(ctx, testProfile("learner-1"), time.Hour))

	store := &fakeStore{err: shared.ErrProfileStoreUnavailable}
	bus := &fakeBus{}
	m := testManager(store, cache, nil, bus)

	opened, err := m.Open(ctx, "learner-1", shared.SubjectMath)
	require.NoError(t, err)
	assert.True(t, opened.Degraded)

	// Every decision carries the degraded marker.
	decision, err := m.ProcessEvent(ctx, opened.SessionID, managerEvent())
	require.NoError(t, err)
	assert.True(t, decision.Degraded)

	assert.Len(t, bus.byType(shared.EventProfileLookupDegraded), 1)
}

func TestManager_DegradedFallbackToDefaultProfile(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{err: shared.ErrProfileStoreUnavailable}
	m := testManager(store, newFakeCache(), nil, nil)

	opened, err := m.Open(ctx, "learner-1", shared.SubjectMath)
	require.NoError(t, err)
	assert.True(t, opened.Degraded)

	grade, err := m.Grade(opened.SessionID)
	require.NoError(t, err)
	assert.Equal(t, shared.GradeLevel(6), grade)
}

func TestManager_SuccessfulLookupRefreshesCache(t *testing.T) {
	ctx := context.Background()
	cache := newFakeCache()
	store := &fakeStore{profile: testProfile("learner-1")}
	m := testManager(store, cache, nil, nil)

	_, err := m.Open(ctx, "learner-1", shared.SubjectMath)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)
}

func TestManager_PermanentLookupErrorSkipsRetry(t *testing.T) {
	ctx := context.Background()
	store := &fakeStore{err: shared.ErrLearnerNotFound}
	m := NewManager(estimator.DefaultPolicy(), store, nil, nil, nil, ManagerConfig{
		ProfileLookupAttempts: 3,
		ProfileLookupTimeout:  time.Second,
	})

	opened, err := m.Open(ctx, "learner-1", shared.SubjectMath)
	require.NoError(t, err)
	assert.True(t, opened.Degraded)
	assert.Equal(t, 1, store.calls)
}

func TestManager_ArchiveFailureDoesNotBlockClose(t *testing.T) {
	ctx := context.Background()
	archiver := &fakeArchiver{err: errors.New("sink down")}
	m := testManager(&fakeStore{profile: testProfile("learner-1")}, nil, archiver, nil)

	opened, err := m.Open(ctx, "learner-1", shared.SubjectMath)
	require.NoError(t, err)

	// Close succeeds even though the archive handoff failed.
	assert.NoError(t, m.Close(ctx, opened.SessionID))
	err = m.Close(ctx, opened.SessionID)
	assert.True(t, shared.IsClosed(err))
}

func TestManager_SessionIsolation(t *testing.T) {
	ctx := context.Background()
	m := testManager(&fakeStore{profile: testProfile("learner-1")}, nil, nil, nil)

	a, err := m.Open(ctx, "learner-1", shared.SubjectMath)
	require.NoError(t, err)
	b, err := m.Open(ctx, "learner-1", shared.SubjectScience)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = m.ProcessEvent(ctx, a.SessionID, managerEvent())
		require.NoError(t, err)
	}

	snapA, err := m.Snapshot(a.SessionID)
	require.NoError(t, err)
	snapB, err := m.Snapshot(b.SessionID)
	require.NoError(t, err)

	assert.Equal(t, 3, snapA.EventCount)
	assert.Equal(t, 0, snapB.EventCount)
}

func TestManager_DeterministicReplay(t *testing.T) {
	ctx := context.Background()

	run := func() session.MetricsSnapshot {
		m := testManager(&fakeStore{profile: testProfile("learner-1")}, nil, nil, nil)
		opened, err := m.Open(ctx, "learner-1", shared.SubjectMath)
		require.NoError(t, err)

		base := time.Unix(1700000000, 0)
		for i := 0; i < 5; i++ {
			e := managerEvent()
			e.Correct = i%2 == 0
			e.ResponseTimeMs = int64(10000 * (i + 1))
			e.Timestamp = base.Add(time.Duration(i) * time.Minute)
			_, err = m.ProcessEvent(ctx, opened.SessionID, e)
			require.NoError(t, err)
		}

		snap, err := m.Snapshot(opened.SessionID)
		require.NoError(t, err)
		return snap
	}

	assert.Equal(t, run(), run())
}

func TestManager_ConcurrentEventsSameSession(t *testing.T) {
	ctx := context.Background()
	m := testManager(&fakeStore{profile: testProfile("learner-1")}, nil, nil, nil)

	opened, err := m.Open(ctx, "learner-1", shared.SubjectMath)
	require.NoError(t, err)

	const workers = 8
	const perWorker = 10
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_, err := m.ProcessEvent(ctx, opened.SessionID, managerEvent())
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	snap, err := m.Snapshot(opened.SessionID)
	require.NoError(t, err)
	assert.Equal(t, workers*perWorker, snap.EventCount)
}

func TestManager_CloseAll(t *testing.T) {
	ctx := context.Background()
	archiver := &fakeArchiver{}
	m := testManager(&fakeStore{profile: testProfile("learner-1")}, nil, archiver, nil)

	for i := 0; i < 3; i++ {
		_, err := m.Open(ctx, "learner-1", shared.SubjectMath)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, m.SessionCount())

	m.CloseAll(ctx)
	assert.Len(t, archiver.records, 3)
}
