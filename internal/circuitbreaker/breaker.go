// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package circuitbreaker

import (
	"sync"
	"time"

	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/metrics"
)

// State is a side-effect-free view of the breaker.
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the state name used in logs and metrics labels.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Config configures a Breaker.
type Config struct {
	// Enabled turns the breaker on. A disabled breaker is always closed.
	Enabled bool

	// Threshold is the number of recorded failures that opens the breaker.
	Threshold int

	// Duration is how long the breaker stays open before granting trials.
	Duration time.Duration

	// HalfOpenMaxAttempts is the number of trial cycles granted per open period.
	HalfOpenMaxAttempts int

	// OpenWait is how long a pipeline sleeps before re-checking an open breaker.
	OpenWait time.Duration
}

// DefaultConfig returns the breaker defaults: disabled, 3 failures, 30s open,
// one trial.
func DefaultConfig() Config {
	return Config{
		Enabled:             false,
		Threshold:           3,
		Duration:            30 * time.Second,
		HalfOpenMaxAttempts: 1,
		OpenWait:            time.Second,
	}
}

// Breaker is safe for concurrent use.
type Breaker struct {
	name string
	cfg  Config
	now  func() time.Time

	mu               sync.Mutex
	failureCount     int
	lastFailureTime  time.Time
	halfOpenAttempts int
	lastState        State
}

// New creates a closed breaker.
func New(name string, cfg Config) *Breaker {
	b := &Breaker{name: name, cfg: cfg, now: time.Now}
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	metrics.CircuitBreakerFailures.WithLabelValues(name).Set(0)
	return b
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}

// OpenWait returns the configured re-check delay for an open breaker.
func (b *Breaker) OpenWait() time.Duration {
	return b.cfg.OpenWait
}

// RecordFailure counts a failure and forfeits any half-open trial in progress.
func (b *Breaker) RecordFailure() {
	if !b.cfg.Enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = b.now()
	b.halfOpenAttempts = 0

	metrics.CircuitBreakerFailures.WithLabelValues(b.name).Set(float64(b.failureCount))
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	b.transitionLocked(b.stateLocked())
}

// Allow reports whether the caller may run a cycle. When the open duration
// has elapsed it consumes one half-open trial slot.
func (b *Breaker) Allow() bool {
	if !b.cfg.Enabled {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failureCount < b.cfg.Threshold {
		return true
	}

	if b.now().Sub(b.lastFailureTime) >= b.cfg.Duration && b.halfOpenAttempts < b.cfg.HalfOpenMaxAttempts {
		b.halfOpenAttempts++
		b.transitionLocked(StateHalfOpen)
		logging.Info().
			Str("breaker", b.name).
			Int("attempt", b.halfOpenAttempts).
			Int("max_attempts", b.cfg.HalfOpenMaxAttempts).
			Msg("[CIRCUIT BREAKER] Granting half-open trial")
		return true
	}

	b.transitionLocked(StateOpen)
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
	return false
}

// IsOpen is the negation of Allow and shares its side effect.
func (b *Breaker) IsOpen() bool {
	return !b.Allow()
}

// Reset closes the breaker after a successful cycle.
func (b *Breaker) Reset() {
	if !b.cfg.Enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount = 0
	b.lastFailureTime = time.Time{}
	b.halfOpenAttempts = 0

	metrics.CircuitBreakerFailures.WithLabelValues(b.name).Set(0)
	metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	b.transitionLocked(StateClosed)
}

// State returns the current state without consuming a trial.
func (b *Breaker) State() State {
	if !b.cfg.Enabled {
		return StateClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stateLocked()
}

// Failures returns the number of failures recorded since the last reset.
func (b *Breaker) Failures() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failureCount
}

func (b *Breaker) stateLocked() State {
	if b.failureCount < b.cfg.Threshold {
		return StateClosed
	}
	if b.now().Sub(b.lastFailureTime) >= b.cfg.Duration && b.halfOpenAttempts < b.cfg.HalfOpenMaxAttempts {
		return StateHalfOpen
	}
	return StateOpen
}

// transitionLocked must be called with mu held.
func (b *Breaker) transitionLocked(to State) {
	from := b.lastState
	if from == to {
		return
	}
	b.lastState = to

	metrics.CircuitBreakerState.WithLabelValues(b.name).Set(float64(to))
	metrics.CircuitBreakerTransitions.WithLabelValues(b.name, from.String(), to.String()).Inc()

	event := logging.Info()
	if to == StateOpen {
		event = logging.Warn()
	}
	event.
		Str("breaker", b.name).
		Str("from", from.String()).
		Str("to", to.String()).
		Int("failures", b.failureCount).
		Msg("[CIRCUIT BREAKER] State transition")
}
