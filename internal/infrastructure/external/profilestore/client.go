// Package profilestore implements the HTTP client for the Learner Profile
// Store, the external service that owns long-lived learner identity and
// preference data. The engine reads profiles once per session open and never
// writes back.
package profilestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/examprep-hub/learner-engine/internal/domain/learner"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
	"github.com/examprep-hub/learner-engine/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the profile store client.
type ClientConfig struct {
	// BaseURL of the profile service.
	BaseURL string

	// APIKey sent as a bearer token.
	APIKey string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// RateLimiterConfig for request pacing.
	RateLimiterConfig RateLimiterConfig

	// Breaker shields the store; nil gets a default ProfileStoreBreaker.
	Breaker *circuitbreaker.Breaker

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:           baseURL,
		Timeout:           3 * time.Second,
		RateLimiterConfig: DefaultRateLimiterConfig(),
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Client talks to the profile service. It implements learner.Store.
type Client struct {
	config      ClientConfig
	httpClient  *http.Client
	logger      *slog.Logger
	rateLimiter *RateLimiter
	breaker     *circuitbreaker.Breaker
	mapper      *Mapper
}

var _ learner.Store = (*Client)(nil)

// NewClient creates a new profile store client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 3 * time.Second
	}
	breaker := config.Breaker
	if breaker == nil {
		breaker = circuitbreaker.ProfileStoreBreaker(func(name string, from, to circuitbreaker.State) {
			config.Logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		})
	}

	return &Client{
		config:      config,
		httpClient:  &http.Client{Timeout: config.Timeout},
		logger:      config.Logger,
		rateLimiter: NewRateLimiter(config.RateLimiterConfig),
		breaker:     breaker,
		mapper:      NewMapper(),
	}
}

// GetProfile fetches a learner profile by ID. Not-found and malformed
// responses are permanent; throttling, server errors and transport failures
// surface as retryable so the caller's retry and fallback policy applies.
func (c *Client) GetProfile(ctx context.Context, id shared.LearnerID) (*learner.Profile, error) {
	if !id.IsValid() {
		return nil, shared.ErrInvalidLearnerID
	}

	if err := c.rateLimiter.Allow(ctx); err != nil {
		return nil, fmt.Errorf("%w: rate limit wait: %v", shared.ErrProfileStoreUnavailable, err)
	}

	var profile *learner.Profile
	err := c.breaker.Do(func() error {
		dto, err := c.fetchProfile(ctx, id)
		if err != nil {
			return err
		}
		mapped, err := c.mapper.ProfileFromDTO(dto, time.Now().UTC())
		if err != nil {
			return err
		}
		profile = mapped
		return nil
	})
	if err != nil {
		if errors.Is(err, circuitbreaker.ErrOpen) || errors.Is(err, circuitbreaker.ErrTooManyProbes) {
			return nil, fmt.Errorf("%w: %v", shared.ErrProfileStoreUnavailable, err)
		}
		return nil, err
	}
	return profile, nil
}

// fetchProfile performs one HTTP request against the profile endpoint.
func (c *Client) fetchProfile(ctx context.Context, id shared.LearnerID) (*ProfileDTO, error) {
	path := fmt.Sprintf("/api/v1/learners/%s/profile", url.PathEscape(id.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %v", shared.ErrProfileStoreTimeout, err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrProfileStoreUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", shared.ErrProfileStoreUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		// fallthrough to decode
	case resp.StatusCode == http.StatusNotFound:
		return nil, shared.ErrLearnerNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		c.rateLimiter.Drain()
		return nil, fmt.Errorf("%w: throttled", shared.ErrProfileStoreUnavailable)
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", shared.ErrProfileStoreUnavailable, resp.StatusCode)
	default:
		var apiErr APIErrorDTO
		if jsonErr := json.Unmarshal(body, &apiErr); jsonErr == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("profile store: status %d: %w", resp.StatusCode, &apiErr)
		}
		return nil, fmt.Errorf("profile store: status %d", resp.StatusCode)
	}

	var dto ProfileDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	return &dto, nil
}

// IsHealthy checks if the profile service answers its health endpoint.
func (c *Client) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ══════════════════════════════════════════════════════════════════════════════
// DISABLED STORE
// ══════════════════════════════════════════════════════════════════════════════

// disabledStore is used when the profile service is switched off; every
// lookup fails so sessions open on cached or default profiles.
type disabledStore struct{}

func (disabledStore) GetProfile(context.Context, shared.LearnerID) (*learner.Profile, error) {
	return nil, shared.ErrProfileStoreUnavailable
}

// Disabled returns a learner.Store that always reports the service as
// unavailable.
func Disabled() learner.Store {
	return disabledStore{}
}
