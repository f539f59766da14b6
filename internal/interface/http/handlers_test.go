package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/examprep-hub/learner-engine/internal/application/command"
	"github.com/examprep-hub/learner-engine/internal/application/engine"
	"github.com/examprep-hub/learner-engine/internal/application/query"
	"github.com/examprep-hub/learner-engine/internal/domain/estimator"
	"github.com/examprep-hub/learner-engine/internal/domain/learner"
	"github.com/examprep-hub/learner-engine/internal/domain/session"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
	catalogclient "github.com/examprep-hub/learner-engine/internal/infrastructure/external/catalog"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUBS & HELPERS
// ══════════════════════════════════════════════════════════════════════════════

type stubStore struct{}

func (stubStore) GetProfile(_ context.Context, id shared.LearnerID) (*learner.Profile, error) {
	return learner.DefaultProfile(id), nil
}

type stubCache struct{}

func (stubCache) Get(context.Context, shared.LearnerID) (*learner.Profile, error) {
	return nil, shared.ErrLearnerNotFound
}

func (stubCache) Set(context.Context, *learner.Profile, time.Duration) error { return nil }

type stubArchiver struct{ records []session.ArchiveRecord }

func (a *stubArchiver) Archive(_ context.Context, record session.ArchiveRecord) error {
	a.records = append(a.records, record)
	return nil
}

type stubPublisher struct{}

func (stubPublisher) Publish(shared.Event) error { return nil }

type stubHealth struct{ checks map[string]bool }

func (h stubHealth) Check(context.Context) map[string]bool { return h.checks }

func newTestServer(t *testing.T, mutate ...func(*Config, *Dependencies)) *httptest.Server {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	manager := engine.NewManager(
		estimator.DefaultPolicy(),
		stubStore{},
		stubCache{},
		&stubArchiver{},
		stubPublisher{},
		engine.ManagerConfig{
			ProfileLookupTimeout:  time.Second,
			ProfileLookupAttempts: 1,
			Logger:                log,
		},
	)

	cfg := DefaultConfig()
	deps := Dependencies{
		OpenSession:   command.NewOpenSessionHandler(manager),
		ProcessEvent:  command.NewProcessEventHandler(manager, catalogclient.Disabled(), log),
		CloseSession:  command.NewCloseSessionHandler(manager),
		GetSnapshot:   query.NewGetSnapshotHandler(manager),
		GetProjection: query.NewGetProjectionHandler(manager),
		Logger:        log,
		Version:       "test",
	}
	for _, m := range mutate {
		m(&cfg, &deps)
	}

	srv := NewServer(cfg, deps)
	ts := httptest.NewServer(srv.buildMiddlewareChain(srv.router))
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url, body string) (int, JSONResponse) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var envelope JSONResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return resp.StatusCode, envelope
}

func openTestSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()

	status, envelope := doJSON(t, http.MethodPost, ts.URL+"/api/v1/sessions",
		`{"learner_id":"learner-42","subject":"math"}`)
	require.Equal(t, http.StatusCreated, status)

	data := envelope.Data.(map[string]any)
	sessionID, _ := data["session_id"].(string)
	require.NotEmpty(t, sessionID)
	return sessionID
}

func eventBody(correct bool) string {
	return fmt.Sprintf(`{
		"problem_id": "prob-1",
		"subject": "math",
		"topic": "fractions",
		"difficulty": 5,
		"correct": %t,
		"response_time_ms": 20000,
		"confidence": 4,
		"timestamp": %q
	}`, correct, time.Now().UTC().Format(time.RFC3339))
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestRootEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, envelope := doJSON(t, http.MethodGet, ts.URL+"/", "")
	require.Equal(t, http.StatusOK, status)
	require.True(t, envelope.Success)

	data := envelope.Data.(map[string]any)
	assert.Equal(t, "learner-engine", data["service"])
	assert.Equal(t, "test", data["version"])
}

func TestLivenessEndpoint(t *testing.T) {
	ts := newTestServer(t)

	status, envelope := doJSON(t, http.MethodGet, ts.URL+"/live", "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, envelope.Success)
}

func TestReadinessReflectsDependencyHealth(t *testing.T) {
	ts := newTestServer(t, func(_ *Config, deps *Dependencies) {
		deps.Health = stubHealth{checks: map[string]bool{"database": true, "redis": true}}
	})

	status, envelope := doJSON(t, http.MethodGet, ts.URL+"/ready", "")
	require.Equal(t, http.StatusOK, status)
	data := envelope.Data.(map[string]any)
	assert.Equal(t, true, data["ready"])
}

func TestReadinessFailsWhenDependencyDown(t *testing.T) {
	ts := newTestServer(t, func(_ *Config, deps *Dependencies) {
		deps.Health = stubHealth{checks: map[string]bool{"database": false}}
	})

	status, envelope := doJSON(t, http.MethodGet, ts.URL+"/ready", "")
	require.Equal(t, http.StatusServiceUnavailable, status)
	data := envelope.Data.(map[string]any)
	assert.Equal(t, false, data["ready"])
}

func TestSessionLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	sessionID := openTestSession(t, ts)

	status, envelope := doJSON(t, http.MethodPost,
		ts.URL+"/api/v1/sessions/"+sessionID+"/events", eventBody(true))
	require.Equal(t, http.StatusOK, status)
	decision := envelope.Data.(map[string]any)
	assert.Contains(t, decision, "next_problem")
	assert.Equal(t, sessionID, decision["session_id"])

	status, envelope = doJSON(t, http.MethodGet,
		ts.URL+"/api/v1/sessions/"+sessionID+"/snapshot", "")
	require.Equal(t, http.StatusOK, status)
	snapshot := envelope.Data.(map[string]any)
	assert.Equal(t, float64(1), snapshot["event_count"])

	status, envelope = doJSON(t, http.MethodGet,
		ts.URL+"/api/v1/sessions/"+sessionID+"/projection", "")
	require.Equal(t, http.StatusOK, status)

	status, envelope = doJSON(t, http.MethodDelete,
		ts.URL+"/api/v1/sessions/"+sessionID, "")
	require.Equal(t, http.StatusOK, status)
	closed := envelope.Data.(map[string]any)
	assert.Equal(t, "closed", closed["status"])
}

func TestOpenSessionRejectsBadBody(t *testing.T) {
	ts := newTestServer(t)

	status, envelope := doJSON(t, http.MethodPost, ts.URL+"/api/v1/sessions", `{not json`)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "invalid_body", envelope.Error.Code)
}

func TestOpenSessionRejectsInvalidLearner(t *testing.T) {
	ts := newTestServer(t)

	status, envelope := doJSON(t, http.MethodPost, ts.URL+"/api/v1/sessions",
		`{"learner_id":"x","subject":"math"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "invalid_request", envelope.Error.Code)
}

func TestUnknownSessionReturns404(t *testing.T) {
	ts := newTestServer(t)

	status, envelope := doJSON(t, http.MethodGet,
		ts.URL+"/api/v1/sessions/00000000-0000-0000-0000-000000000000/snapshot", "")
	assert.Equal(t, http.StatusNotFound, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "session_not_found", envelope.Error.Code)
}

func TestEventAfterCloseReturns409(t *testing.T) {
	ts := newTestServer(t)
	sessionID := openTestSession(t, ts)

	status, _ := doJSON(t, http.MethodDelete, ts.URL+"/api/v1/sessions/"+sessionID, "")
	require.Equal(t, http.StatusOK, status)

	status, envelope := doJSON(t, http.MethodPost,
		ts.URL+"/api/v1/sessions/"+sessionID+"/events", eventBody(true))
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "session_closed", envelope.Error.Code)
}

func TestInvalidEventReturns400(t *testing.T) {
	ts := newTestServer(t)
	sessionID := openTestSession(t, ts)

	status, envelope := doJSON(t, http.MethodPost,
		ts.URL+"/api/v1/sessions/"+sessionID+"/events",
		`{"problem_id":"prob-1","subject":"math","topic":"fractions","difficulty":99,"correct":true,"response_time_ms":1000,"confidence":4}`)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "invalid_request", envelope.Error.Code)
}

func TestRequestIDPropagation(t *testing.T) {
	ts := newTestServer(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/live", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "req-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "req-123", resp.Header.Get("X-Request-ID"))

	var envelope JSONResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "req-123", envelope.RequestID)
}

func TestAPIKeyAuthentication(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret-key"), bcrypt.MinCost)
	require.NoError(t, err)

	ts := newTestServer(t, func(cfg *Config, _ *Dependencies) {
		cfg.APIKeyHash = string(hash)
	})

	// Health endpoints stay open.
	status, _ := doJSON(t, http.MethodGet, ts.URL+"/live", "")
	assert.Equal(t, http.StatusOK, status)

	// API endpoints require the key.
	status, envelope := doJSON(t, http.MethodPost, ts.URL+"/api/v1/sessions",
		`{"learner_id":"learner-42","subject":"math"}`)
	assert.Equal(t, http.StatusUnauthorized, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "missing_api_key", envelope.Error.Code)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/api/v1/sessions",
		strings.NewReader(`{"learner_id":"learner-42","subject":"math"}`))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "wrong-key")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err = http.NewRequest(http.MethodPost, ts.URL+"/api/v1/sessions",
		strings.NewReader(`{"learner_id":"learner-42","subject":"math"}`))
	require.NoError(t, err)
	req.Header.Set("X-API-Key", "secret-key")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

func TestBodyLimitRejectsOversizedPayload(t *testing.T) {
	ts := newTestServer(t, func(cfg *Config, _ *Dependencies) {
		cfg.MaxBodyBytes = 64
	})

	big := `{"learner_id":"learner-42","subject":"math","padding":"` +
		strings.Repeat("x", 256) + `"}`
	status, envelope := doJSON(t, http.MethodPost, ts.URL+"/api/v1/sessions", big)
	assert.Equal(t, http.StatusBadRequest, status)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "invalid_body", envelope.Error.Code)
}
