package profilestore

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/examprep-hub/learner-engine/internal/domain/shared"
	"github.com/examprep-hub/learner-engine/pkg/circuitbreaker"
)

func testClient(baseURL string, opts ...func(*ClientConfig)) *Client {
	cfg := DefaultClientConfig(baseURL)
	cfg.APIKey = "test-key"
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	for _, opt := range opts {
		opt(&cfg)
	}
	return NewClient(cfg)
}

func TestGetProfile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/learners/learner-42/profile", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(validDTO())
	}))
	defer server.Close()

	profile, err := testClient(server.URL).GetProfile(context.Background(), "learner-42")
	require.NoError(t, err)

	assert.Equal(t, shared.LearnerID("learner-42"), profile.ID)
	assert.Equal(t, shared.GradeLevel(6), profile.Grade)
	assert.WithinDuration(t, time.Now(), profile.FetchedAt, 5*time.Second)
}

func TestGetProfileRejectsInvalidID(t *testing.T) {
	client := testClient("http://profile-store.invalid")

	_, err := client.GetProfile(context.Background(), "x")
	assert.ErrorIs(t, err, shared.ErrInvalidLearnerID)
}

func TestGetProfileNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetProfile(context.Background(), "learner-42")
	assert.ErrorIs(t, err, shared.ErrLearnerNotFound)
	assert.False(t, shared.IsRetryable(err))
}

func TestGetProfileServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetProfile(context.Background(), "learner-42")
	assert.ErrorIs(t, err, shared.ErrProfileStoreUnavailable)
	assert.True(t, shared.IsRetryable(err))
}

func TestGetProfileThrottled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetProfile(context.Background(), "learner-42")
	assert.ErrorIs(t, err, shared.ErrProfileStoreUnavailable)
}

func TestGetProfileMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "{not json")
	}))
	defer server.Close()

	_, err := testClient(server.URL).GetProfile(context.Background(), "learner-42")
	require.Error(t, err)
	assert.False(t, shared.IsRetryable(err))
}

func TestGetProfileBreakerShortCircuits(t *testing.T) {
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := testClient(server.URL, func(cfg *ClientConfig) {
		cfg.Breaker = circuitbreaker.New("profile-store-test",
			circuitbreaker.WithFailureThreshold(2),
			circuitbreaker.WithCooldown(time.Minute),
		)
	})

	for i := 0; i < 2; i++ {
		_, err := client.GetProfile(context.Background(), "learner-42")
		require.Error(t, err)
	}
	require.Equal(t, int64(2), hits.Load())

	_, err := client.GetProfile(context.Background(), "learner-42")
	assert.ErrorIs(t, err, shared.ErrProfileStoreUnavailable)
	assert.Equal(t, int64(2), hits.Load(), "open breaker must not reach the server")
}

func TestIsHealthy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/health", r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))

	client := testClient(server.URL)
	assert.True(t, client.IsHealthy(context.Background()))

	server.Close()
	assert.False(t, client.IsHealthy(context.Background()))
}

func TestDisabledStore(t *testing.T) {
	_, err := Disabled().GetProfile(context.Background(), "learner-42")
	assert.ErrorIs(t, err, shared.ErrProfileStoreUnavailable)
}
