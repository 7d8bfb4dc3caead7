// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package leader

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/metrics"
	"github.com/tomtom215/outboxpublisher/internal/pipeline/wait"
)

// Elector gates pipeline cycles on leadership.
type Elector interface {
	// PollLeadership returns true for the leader. Followers sleep the check
	// interval (or until ctx is done) and get false.
	PollLeadership(ctx context.Context) bool
	IsLeader() bool
}

// Config holds leadership timings.
type Config struct {
	Resource      string
	RaceInterval  time.Duration
	CheckInterval time.Duration
	Lifetime      time.Duration
	// ReleaseTimeout bounds the lock release on shutdown.
	ReleaseTimeout time.Duration
}

// DefaultConfig returns the default timings.
func DefaultConfig() Config {
	return Config{
		Resource:       "outbox-publisher-leader",
		RaceInterval:   2 * time.Second,
		CheckInterval:  time.Second,
		Lifetime:       10 * time.Second,
		ReleaseTimeout: 5 * time.Second,
	}
}

// Coordinator races for the lock in Run and answers PollLeadership from the
// last result.
type Coordinator struct {
	lock   *Lock
	cfg    Config
	leader atomic.Bool
	logger zerolog.Logger
}

var _ Elector = (*Coordinator)(nil)

// NewCoordinator returns a coordinator that starts as a follower.
func NewCoordinator(lock *Lock, cfg Config) *Coordinator {
	return &Coordinator{
		lock:   lock,
		cfg:    cfg,
		logger: logging.WithComponent("leader"),
	}
}

// IsLeader reports the last race result.
func (c *Coordinator) IsLeader() bool {
	return c.leader.Load()
}

// Token returns this instance's holder token.
func (c *Coordinator) Token() string {
	return c.lock.Token()
}

// PollLeadership implements Elector.
func (c *Coordinator) PollLeadership(ctx context.Context) bool {
	if c.leader.Load() {
		return true
	}
	wait.Sleep(ctx, c.cfg.CheckInterval)
	return false
}

// Race runs one take-or-extend round and returns the outcome.
func (c *Coordinator) Race(ctx context.Context) bool {
	var held bool
	if c.leader.Load() {
		held = c.lock.Extend(ctx, c.cfg.Lifetime)
	} else {
		held = c.lock.Take(ctx, c.cfg.Lifetime)
	}
	c.set(held)
	return held
}

// Run races every RaceInterval until ctx is done, then releases the lock.
func (c *Coordinator) Run(ctx context.Context) error {
	c.logger.Info().
		Str("token", c.lock.Token()).
		Dur("race_interval", c.cfg.RaceInterval).
		Dur("lifetime", c.cfg.Lifetime).
		Msg("leadership coordinator started")

	c.Race(ctx)

	ticker := time.NewTicker(c.cfg.RaceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.Release(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-ticker.C:
			c.Race(ctx)
		}
	}
}

// Release drops leadership and deletes the lock if it is held.
func (c *Coordinator) Release(ctx context.Context) {
	if !c.leader.Load() {
		return
	}
	if c.cfg.ReleaseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.ReleaseTimeout)
		defer cancel()
	}
	released := c.lock.Release(ctx)
	c.set(false)
	c.logger.Info().Bool("released", released).Msg("leadership released")
}

func (c *Coordinator) set(held bool) {
	if c.leader.Swap(held) == held {
		return
	}
	metrics.SetLeader(held)
	if held {
		c.logger.Info().Str("token", c.lock.Token()).Msg("acquired leadership")
	} else {
		c.logger.Warn().Str("token", c.lock.Token()).Msg("lost leadership")
	}
}

// AlwaysLeader is the Elector used when leadership is disabled.
type AlwaysLeader struct{}

// PollLeadership always returns true.
func (AlwaysLeader) PollLeadership(context.Context) bool { return true }

// IsLeader always returns true.
func (AlwaysLeader) IsLeader() bool { return true }
