package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUpstream = errors.New("upstream boom")

func failN(b *Breaker, n int) {
	for i := 0; i < n; i++ {
		_ = b.Do(func() error { return errUpstream })
	}
}

func TestBreakerStartsClosed(t *testing.T) {
	b := New("test")

	assert.Equal(t, StateClosed, b.State())
	assert.NoError(t, b.Do(func() error { return nil }))
}

func TestBreakerTripsOnConsecutiveFailures(t *testing.T) {
	b := New("test")

	failN(b, 4)
	assert.Equal(t, StateClosed, b.State())

	failN(b, 1)
	assert.Equal(t, StateOpen, b.State())

	err := b.Do(func() error {
		t.Fatal("op must not run while open")
		return nil
	})
	require.ErrorIs(t, err, ErrOpen)
	assert.Contains(t, err.Error(), "upstream boom")
}

func TestBreakerSuccessResetsFailureCount(t *testing.T) {
	b := New("test")

	failN(b, 4)
	require.NoError(t, b.Do(func() error { return nil }))

	failN(b, 4)
	assert.Equal(t, StateClosed, b.State())

	failN(b, 1)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerHalfOpenClosesAfterSuccessThreshold(t *testing.T) {
	b := New("test", WithCooldown(time.Millisecond))

	failN(b, 5)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(5 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, b.State())

	require.NoError(t, b.Do(func() error { return nil }))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New("test", WithCooldown(time.Millisecond))

	failN(b, 5)
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	require.ErrorIs(t, b.Do(func() error { return errUpstream }), errUpstream)
	assert.Equal(t, StateOpen, b.State())
	assert.ErrorIs(t, b.Do(func() error { return nil }), ErrOpen)
}

func TestBreakerLimitsConcurrentProbes(t *testing.T) {
	b := New("test", WithCooldown(time.Millisecond))

	failN(b, 5)
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())

	var nested error
	err := b.Do(func() error {
		nested = b.Do(func() error { return nil })
		return nil
	})
	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrTooManyProbes)
}

func TestBreakerDoWithFallback(t *testing.T) {
	b := New("test")

	err := b.DoWithFallback(
		func() error { return nil },
		func(err error) error {
			t.Fatal("fallback must not run on success")
			return nil
		},
	)
	assert.NoError(t, err)

	var seen error
	err = b.DoWithFallback(
		func() error { return errUpstream },
		func(err error) error {
			seen = err
			return nil
		},
	)
	assert.NoError(t, err)
	assert.ErrorIs(t, seen, errUpstream)

	failN(b, 5)
	err = b.DoWithFallback(
		func() error { return nil },
		func(err error) error { return err },
	)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreakerOnStateChange(t *testing.T) {
	type change struct {
		name     string
		from, to State
	}
	var changes []change
	b := New("profile-store",
		WithCooldown(time.Millisecond),
		WithOnStateChange(func(name string, from, to State) {
			changes = append(changes, change{name, from, to})
		}),
	)

	failN(b, 5)
	time.Sleep(5 * time.Millisecond)
	require.Equal(t, StateHalfOpen, b.State())
	require.NoError(t, b.Do(func() error { return nil }))
	require.NoError(t, b.Do(func() error { return nil }))

	require.Len(t, changes, 3)
	assert.Equal(t, change{"profile-store", StateClosed, StateOpen}, changes[0])
	assert.Equal(t, change{"profile-store", StateOpen, StateHalfOpen}, changes[1])
	assert.Equal(t, change{"profile-store", StateHalfOpen, StateClosed}, changes[2])
}

func TestBreakerLastFailure(t *testing.T) {
	b := New("test")

	assert.NoError(t, b.LastFailure())
	failN(b, 1)
	assert.ErrorIs(t, b.LastFailure(), errUpstream)
}

func TestOptionsIgnoreNonPositiveValues(t *testing.T) {
	b := New("test",
		WithFailureThreshold(0),
		WithSuccessThreshold(-1),
		WithCooldown(0),
	)

	assert.Equal(t, 5, b.cfg.FailureThreshold)
	assert.Equal(t, 2, b.cfg.SuccessThreshold)
	assert.Equal(t, 30*time.Second, b.cfg.Cooldown)
}

func TestCatalogBreakerTripsSooner(t *testing.T) {
	var tripped string
	b := CatalogBreaker(func(name string, from, to State) {
		if to == StateOpen {
			tripped = name
		}
	})

	failN(b, 3)
	assert.Equal(t, StateOpen, b.State())
	assert.Equal(t, "method-catalog", tripped)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}
