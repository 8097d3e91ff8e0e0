// Package resilience keeps the meeting loop alive through LLM backend
// trouble. It provides a three-state circuit breaker, a failover group that
// routes around unhealthy backends, and a retry wrapper that bounds every
// call with a timeout and retries transient failures once with jitter.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [Breaker.Do] while the breaker is open and
// the cool-down has not yet elapsed.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// BreakerState is the operating mode of a [Breaker].
type BreakerState int

const (
	// BreakerClosed forwards all calls.
	BreakerClosed BreakerState = iota

	// BreakerOpen rejects calls with [ErrCircuitOpen] until the cool-down
	// elapses.
	BreakerOpen

	// BreakerHalfOpen lets a limited number of probe calls through. Enough
	// successes close the breaker; any failure re-opens it.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// BreakerConfig tunes a [Breaker]. Zero fields take the defaults noted per
// field.
type BreakerConfig struct {
	// Name labels the breaker in log lines.
	Name string

	// Trip is the number of consecutive failures that opens the breaker.
	// Default 5.
	Trip int

	// CoolDown is how long the breaker stays open before probing. Default 30s.
	CoolDown time.Duration

	// Probes is how many successful probe calls close a half-open breaker.
	// Default 3.
	Probes int
}

// Breaker is a three-state circuit breaker.
type Breaker struct {
	name     string
	trip     int
	coolDown time.Duration
	probes   int

	mu        sync.Mutex
	state     BreakerState
	failures  int
	successes int
	openedAt  time.Time
	inFlight  int
}

// NewBreaker creates a breaker in the closed state.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.Trip <= 0 {
		cfg.Trip = 5
	}
	if cfg.CoolDown <= 0 {
		cfg.CoolDown = 30 * time.Second
	}
	if cfg.Probes <= 0 {
		cfg.Probes = 3
	}
	return &Breaker{
		name:     cfg.Name,
		trip:     cfg.Trip,
		coolDown: cfg.CoolDown,
		probes:   cfg.Probes,
	}
}

// Do runs fn unless the breaker rejects the call. Open breakers return
// [ErrCircuitOpen] without invoking fn; half-open breakers admit at most one
// probe at a time.
func (b *Breaker) Do(fn func() error) error {
	b.mu.Lock()
	switch b.state {
	case BreakerOpen:
		if time.Since(b.openedAt) < b.coolDown {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		b.successes = 0
		slog.Info("circuit breaker probing", "name", b.name)
		fallthrough
	case BreakerHalfOpen:
		if b.inFlight > 0 {
			b.mu.Unlock()
			return ErrCircuitOpen
		}
	}
	b.inFlight++
	probing := b.state == BreakerHalfOpen
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.inFlight--

	if err != nil {
		b.failures++
		if probing {
			b.state = BreakerOpen
			b.openedAt = time.Now()
			slog.Warn("circuit breaker re-opened", "name", b.name)
		} else if b.state == BreakerClosed && b.failures >= b.trip {
			b.state = BreakerOpen
			b.openedAt = time.Now()
			slog.Warn("circuit breaker opened", "name", b.name, "failures", b.failures)
		}
		return err
	}

	if probing {
		b.successes++
		if b.successes >= b.probes {
			b.state = BreakerClosed
			b.failures = 0
			slog.Info("circuit breaker closed", "name", b.name)
		}
	} else {
		b.failures = 0
	}
	return nil
}

// State reports the breaker's current state. An open breaker whose cool-down
// has elapsed reads as half-open; the actual transition happens on the next
// [Breaker.Do].
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && time.Since(b.openedAt) >= b.coolDown {
		return BreakerHalfOpen
	}
	return b.state
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
	b.successes = 0
}
