// Package catalog implements the HTTP client for the Content Catalog, the
// read-only service listing solution methods per subject and topic. Lookups
// are advisory: a failed call leaves the method annotation empty and never
// blocks a decision.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	domaincatalog "github.com/examprep-hub/learner-engine/internal/domain/catalog"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
	"github.com/examprep-hub/learner-engine/pkg/circuitbreaker"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// ClientConfig contains configuration for the catalog client.
type ClientConfig struct {
	// BaseURL of the catalog service.
	BaseURL string

	// APIKey sent as a bearer token.
	APIKey string

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// CacheTTL is how long a method list is memoized per subject/topic/grade.
	CacheTTL time.Duration

	// Breaker shields the catalog; nil gets a default CatalogBreaker.
	Breaker *circuitbreaker.Breaker

	// Logger for structured logging.
	Logger *slog.Logger
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig(baseURL string) ClientConfig {
	return ClientConfig{
		BaseURL:  baseURL,
		Timeout:  2 * time.Second,
		CacheTTL: 10 * time.Minute,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// methodsDTO is the wire shape of a method list response.
type methodsDTO struct {
	Methods []string `json:"methods"`
}

type cacheEntry struct {
	methods   []domaincatalog.MethodID
	expiresAt time.Time
}

// Client talks to the catalog service with per-key TTL memoization. It
// implements catalog.Catalog.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
	breaker    *circuitbreaker.Breaker

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

var _ domaincatalog.Catalog = (*Client)(nil)

// NewClient creates a new catalog client.
func NewClient(config ClientConfig) *Client {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = 10 * time.Minute
	}
	breaker := config.Breaker
	if breaker == nil {
		breaker = circuitbreaker.CatalogBreaker(func(name string, from, to circuitbreaker.State) {
			config.Logger.Warn("circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		})
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     config.Logger,
		breaker:    breaker,
		cache:      make(map[string]cacheEntry),
	}
}

// ListApplicableMethods returns the solution methods for a subject/topic at a
// grade level, serving memoized results when fresh.
func (c *Client) ListApplicableMethods(ctx context.Context, subject shared.Subject, topic shared.Topic, grade shared.GradeLevel) ([]domaincatalog.MethodID, error) {
	key := string(subject) + "|" + string(topic) + "|" + strconv.Itoa(int(grade))

	c.mu.RLock()
	entry, ok := c.cache[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.methods, nil
	}

	var methods []domaincatalog.MethodID
	err := c.breaker.Do(func() error {
		fetched, err := c.fetchMethods(ctx, subject, topic, grade)
		if err != nil {
			return err
		}
		methods = fetched
		return nil
	})
	if err != nil {
		// Serve a stale entry over nothing while the catalog is down.
		if ok {
			return entry.methods, nil
		}
		if errors.Is(err, circuitbreaker.ErrOpen) || errors.Is(err, circuitbreaker.ErrTooManyProbes) {
			return nil, fmt.Errorf("%w: %v", shared.ErrCatalogUnavailable, err)
		}
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = cacheEntry{methods: methods, expiresAt: time.Now().Add(c.config.CacheTTL)}
	c.mu.Unlock()

	return methods, nil
}

func (c *Client) fetchMethods(ctx context.Context, subject shared.Subject, topic shared.Topic, grade shared.GradeLevel) ([]domaincatalog.MethodID, error) {
	params := url.Values{}
	params.Set("subject", subject.String())
	params.Set("topic", topic.String())
	params.Set("grade", strconv.Itoa(int(grade)))

	fullURL := c.config.BaseURL + "/api/v1/methods?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", shared.ErrCatalogUnavailable, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		// Unknown topic is an empty method list, not a failure.
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", shared.ErrCatalogUnavailable, resp.StatusCode)
	}

	var dto methodsDTO
	if err := json.Unmarshal(body, &dto); err != nil {
		return nil, fmt.Errorf("unmarshal methods: %w", err)
	}

	methods := make([]domaincatalog.MethodID, 0, len(dto.Methods))
	for _, m := range dto.Methods {
		if m == "" {
			continue
		}
		methods = append(methods, domaincatalog.MethodID(m))
	}
	return methods, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// DISABLED CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// disabledCatalog returns empty method lists when the catalog is switched off.
type disabledCatalog struct{}

func (disabledCatalog) ListApplicableMethods(context.Context, shared.Subject, shared.Topic, shared.GradeLevel) ([]domaincatalog.MethodID, error) {
	return nil, nil
}

// Disabled returns a catalog.Catalog that always answers with no methods.
func Disabled() domaincatalog.Catalog {
	return disabledCatalog{}
}
