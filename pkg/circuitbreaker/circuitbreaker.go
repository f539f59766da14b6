// Package circuitbreaker implements the circuit breaker pattern used to
// shield the engine from flapping upstream services.
package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════
// STATE
// ══════════════════════════════════════════════════════════════════════════

// State represents the breaker state machine.
type State int

const (
	// StateClosed allows all requests through.
	StateClosed State = iota
	// StateOpen rejects all requests until the cooldown elapses.
	StateOpen
	// StateHalfOpen allows a limited number of probe requests.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var (
	// ErrOpen is returned when the breaker rejects a request outright.
	ErrOpen = errors.New("circuit breaker is open")
	// ErrTooManyProbes is returned when the half-open probe budget is spent.
	ErrTooManyProbes = errors.New("circuit breaker: too many half-open probes")
)

// ══════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════

// Config controls trip and recovery behaviour.
type Config struct {
	Name string
	// FailureThreshold is the number of consecutive failures that trips the
	// breaker while closed.
	FailureThreshold int
	// SuccessThreshold is the number of consecutive probe successes required
	// to close the breaker again.
	SuccessThreshold int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// MaxProbes caps concurrent-ish probe requests while half-open.
	MaxProbes int
	// OnStateChange is invoked after every transition.
	OnStateChange func(name string, from, to State)
}

// Option mutates a Config.
type Option func(*Config)

// WithFailureThreshold sets the consecutive failure trip point.
func WithFailureThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.FailureThreshold = n
		}
	}
}

// WithSuccessThreshold sets the probe successes needed to close.
func WithSuccessThreshold(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.SuccessThreshold = n
		}
	}
}

// WithCooldown sets the open-state duration.
func WithCooldown(d time.Duration) Option {
	return func(c *Config) {
		if d > 0 {
			c.Cooldown = d
		}
	}
}

// WithOnStateChange installs a transition callback.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) { c.OnStateChange = fn }
}

// ══════════════════════════════════════════════════════════════════════════
// BREAKER
// ══════════════════════════════════════════════════════════════════════════

// Breaker is a three-state circuit breaker safe for concurrent use.
type Breaker struct {
	cfg Config

	mu          sync.Mutex
	state       State
	failures    int
	successes   int
	probes      int
	openedAt    time.Time
	lastFailure error
}

// New builds a Breaker with the given name and options.
func New(name string, opts ...Option) *Breaker {
	cfg := Config{
		Name:             name,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
		MaxProbes:        1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Breaker{cfg: cfg, state: StateClosed}
}

// Do runs op through the breaker.
func (b *Breaker) Do(op func() error) error {
	if err := b.before(); err != nil {
		return err
	}
	err := op()
	b.after(err)
	return err
}

// DoWithFallback runs op through the breaker and calls fallback when the
// breaker rejects the request or op fails.
func (b *Breaker) DoWithFallback(op func() error, fallback func(err error) error) error {
	err := b.Do(op)
	if err != nil && fallback != nil {
		return fallback(err)
	}
	return err
}

// State returns the current state, applying the open→half-open timeout.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maybeProbe(time.Now())
	return b.state
}

// LastFailure returns the error that most recently tripped or kept the
// breaker open, if any.
func (b *Breaker) LastFailure() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastFailure
}

func (b *Breaker) before() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.maybeProbe(time.Now())

	switch b.state {
	case StateOpen:
		if b.lastFailure != nil {
			return fmt.Errorf("%w (last failure: %v)", ErrOpen, b.lastFailure)
		}
		return ErrOpen
	case StateHalfOpen:
		if b.probes >= b.cfg.MaxProbes {
			return ErrTooManyProbes
		}
		b.probes++
	}
	return nil
}

func (b *Breaker) after(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.onFailure(err)
		return
	}
	b.onSuccess()
}

func (b *Breaker) onSuccess() {
	switch b.state {
	case StateClosed:
		b.failures = 0
	case StateHalfOpen:
		if b.probes > 0 {
			b.probes--
		}
		b.successes++
		if b.successes >= b.cfg.SuccessThreshold {
			b.transition(StateClosed)
		}
	}
}

func (b *Breaker) onFailure(err error) {
	b.lastFailure = err
	switch b.state {
	case StateClosed:
		b.failures++
		if b.failures >= b.cfg.FailureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		b.transition(StateOpen)
	}
}

// maybeProbe moves an open breaker to half-open once the cooldown elapses.
// Callers must hold b.mu.
func (b *Breaker) maybeProbe(now time.Time) {
	if b.state == StateOpen && now.Sub(b.openedAt) >= b.cfg.Cooldown {
		b.transition(StateHalfOpen)
	}
}

// transition switches state and resets counters. Callers must hold b.mu.
func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.failures = 0
	b.successes = 0
	b.probes = 0
	if to == StateOpen {
		b.openedAt = time.Now()
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(b.cfg.Name, from, to)
	}
}

// ══════════════════════════════════════════════════════════════════════════
// PRECONFIGURED BREAKERS
// ══════════════════════════════════════════════════════════════════════════

// ProfileStoreBreaker shields learner profile lookups. A tripped breaker
// causes session opens to fall back to cached or default profiles.
func ProfileStoreBreaker(onChange func(name string, from, to State)) *Breaker {
	return New("profile-store",
		WithFailureThreshold(5),
		WithSuccessThreshold(2),
		WithCooldown(30*time.Second),
		WithOnStateChange(onChange),
	)
}

// CatalogBreaker shields method catalog lookups, which are advisory and
// trip sooner.
func CatalogBreaker(onChange func(name string, from, to State)) *Breaker {
	return New("method-catalog",
		WithFailureThreshold(3),
		WithSuccessThreshold(1),
		WithCooldown(15*time.Second),
		WithOnStateChange(onChange),
	)
}

// ArchiveBreaker shields archive writes to Postgres.
func ArchiveBreaker(onChange func(name string, from, to State)) *Breaker {
	return New("archive-sink",
		WithFailureThreshold(10),
		WithSuccessThreshold(3),
		WithCooldown(time.Minute),
		WithOnStateChange(onChange),
	)
}
