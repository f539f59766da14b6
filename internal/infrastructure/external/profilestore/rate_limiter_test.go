package profilestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurst(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerMinute: 60,
		BurstSize:         5,
		WaitTimeout:       time.Millisecond,
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, rl.Allow(context.Background()), "burst request %d", i)
	}

	// Bucket is empty and the refill is too slow for the wait budget.
	assert.ErrorIs(t, rl.Allow(context.Background()), context.DeadlineExceeded)
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerMinute: 6000, // 100 tokens/sec
		BurstSize:         1,
		WaitTimeout:       time.Second,
	})

	require.NoError(t, rl.Allow(context.Background()))

	// The next token arrives within ~10ms.
	start := time.Now()
	require.NoError(t, rl.Allow(context.Background()))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestRateLimiterDrain(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerMinute: 60,
		BurstSize:         10,
		WaitTimeout:       time.Millisecond,
	})

	require.NoError(t, rl.Allow(context.Background()))
	rl.Drain()

	assert.ErrorIs(t, rl.Allow(context.Background()), context.DeadlineExceeded)
}

func TestRateLimiterHonorsContextCancellation(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{
		RequestsPerMinute: 1,
		BurstSize:         1,
		WaitTimeout:       time.Hour,
	})

	require.NoError(t, rl.Allow(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	err := rl.Allow(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRateLimiterDefaults(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{})

	assert.Equal(t, float64(1), rl.maxTokens)
	assert.InDelta(t, 1.0, rl.refillRate, 0.001)
}
