// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

// Package pipeline runs a publishing cycle in a loop gated on leadership and
// a circuit breaker.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/tomtom215/outboxpublisher/internal/circuitbreaker"
	"github.com/tomtom215/outboxpublisher/internal/leader"
	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/metrics"
	"github.com/tomtom215/outboxpublisher/internal/pipeline/wait"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// Cycle results used as metric labels.
const (
	ResultOK               = "ok"
	ResultPersistenceError = "persistence_error"
	ResultError            = "error"
)

// Cycle is one unit of pipeline work.
type Cycle interface {
	RunCycle(ctx context.Context) error
}

// CycleFunc adapts a function to Cycle.
type CycleFunc func(ctx context.Context) error

// RunCycle implements Cycle.
func (f CycleFunc) RunCycle(ctx context.Context) error { return f(ctx) }

// Runner drives a Cycle until its context is done.
//
// Each iteration:
//  1. returns when ctx is done
//  2. skips when this instance is not the leader (the elector sleeps)
//  3. sleeps the breaker's open wait while the breaker is open
//  4. runs one cycle: success resets the breaker, a persistence error is
//     recorded on it, other errors are logged
type Runner struct {
	name    string
	cycle   Cycle
	elector leader.Elector
	breaker *circuitbreaker.Breaker
	logger  zerolog.Logger
	sleep   func(ctx context.Context, d time.Duration)
	backoff backoff.BackOff
}

// Option configures a Runner.
type Option func(*Runner)

// WithErrorBackoff sets the delay bounds applied after consecutive
// persistence errors.
func WithErrorBackoff(initial, maxInterval time.Duration) Option {
	return func(r *Runner) {
		r.backoff = newErrorBackoff(initial, maxInterval)
	}
}

func newErrorBackoff(initial, maxInterval time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// NewRunner returns a Runner. A nil elector means always leader.
func NewRunner(name string, cycle Cycle, elector leader.Elector, breaker *circuitbreaker.Breaker, opts ...Option) *Runner {
	if elector == nil {
		elector = leader.AlwaysLeader{}
	}
	r := &Runner{
		name:    name,
		cycle:   cycle,
		elector: elector,
		breaker: breaker,
		logger:  logging.WithComponent("pipeline").With().Str("pipeline", name).Logger(),
		sleep:   wait.Sleep,
		backoff: newErrorBackoff(100*time.Millisecond, 10*time.Second),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Name returns the pipeline name.
func (r *Runner) Name() string { return r.name }

// Breaker returns the pipeline's breaker.
func (r *Runner) Breaker() *circuitbreaker.Breaker { return r.breaker }

// BreakerState returns the breaker state name for status reporting.
func (r *Runner) BreakerState() string { return r.breaker.State().String() }

// Run loops until ctx is done and returns ctx.Err().
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().Msg("pipeline started")
	defer r.logger.Info().Msg("pipeline stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if !r.elector.PollLeadership(ctx) {
			continue
		}

		if r.breaker.IsOpen() {
			r.logger.Warn().
				Int("failures", r.breaker.Failures()).
				Dur("wait", r.breaker.OpenWait()).
				Msg("circuit breaker open, pausing pipeline")
			r.sleep(ctx, r.breaker.OpenWait())
			continue
		}

		r.Step(ctx)
	}
}

// Step runs a single cycle and applies its outcome to the breaker.
func (r *Runner) Step(ctx context.Context) {
	cycleCtx := logging.ContextWithCycle(ctx, r.name)
	start := time.Now()
	err := r.cycle.RunCycle(cycleCtx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		r.breaker.Reset()
		r.backoff.Reset()
		metrics.RecordPipelineCycle(r.name, ResultOK, elapsed)
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		// shutdown while waiting; nothing to record
	case store.IsPersistence(err):
		r.breaker.RecordFailure()
		metrics.RecordPipelineCycle(r.name, ResultPersistenceError, elapsed)
		logging.Ctx(cycleCtx).Error().Err(err).
			Int("breaker_failures", r.breaker.Failures()).
			Msg("pipeline cycle failed on datastore")
		r.sleep(ctx, r.backoff.NextBackOff())
	default:
		metrics.RecordPipelineCycle(r.name, ResultError, elapsed)
		logging.Ctx(cycleCtx).Error().Err(err).Msg("pipeline cycle failed")
	}
}
