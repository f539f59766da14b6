package learner

import (
	"context"
	"time"

	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// Store is the port to the external Learner Profile Store. Implementations
// must tolerate timeouts; the engine wraps calls with retry and falls back to
// the cache when the store stays unreachable.
type Store interface {
	// GetProfile fetches the current profile snapshot for a learner.
	GetProfile(ctx context.Context, id shared.LearnerID) (*Profile, error)
}

// Cache holds last-known-good profile snapshots per learner. Used as the
// degraded fallback when the live store lookup fails.
type Cache interface {
	// Get returns the cached profile or an error on miss.
	Get(ctx context.Context, id shared.LearnerID) (*Profile, error)

	// Set stores a profile snapshot with a TTL.
	Set(ctx context.Context, profile *Profile, ttl time.Duration) error
}
