package redis

import (
	"context"
	"errors"
	"time"

	"github.com/examprep-hub/learner-engine/internal/domain/learner"
	"github.com/examprep-hub/learner-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROFILE CACHE
// ══════════════════════════════════════════════════════════════════════════════

// ProfileCache stores last-known-good learner profile snapshots. When the
// profile store is unreachable, session opens fall back to these snapshots
// and run degraded instead of failing. Implements learner.Cache.
type ProfileCache struct {
	cache *Cache
}

var _ learner.Cache = (*ProfileCache)(nil)

// NewProfileCache creates a ProfileCache on top of a Cache.
func NewProfileCache(cache *Cache) *ProfileCache {
	return &ProfileCache{cache: cache}
}

// Get returns the cached profile for a learner, or ErrLearnerNotFound on a
// miss.
func (pc *ProfileCache) Get(ctx context.Context, id shared.LearnerID) (*learner.Profile, error) {
	var profile learner.Profile
	err := pc.cache.Get(ctx, ProfileKey(id.String()), &profile)
	if err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, shared.ErrLearnerNotFound
		}
		return nil, err
	}

	if err := profile.Validate(); err != nil {
		// A corrupt snapshot is worse than a miss; drop it.
		_ = pc.cache.Delete(ctx, ProfileKey(id.String()))
		return nil, shared.ErrLearnerNotFound
	}

	return &profile, nil
}

// Set stores a profile snapshot with a TTL.
func (pc *ProfileCache) Set(ctx context.Context, profile *learner.Profile, ttl time.Duration) error {
	if profile == nil {
		return shared.ErrInvalidEntity
	}
	return pc.cache.Set(ctx, ProfileKey(profile.ID.String()), profile, ttl)
}
