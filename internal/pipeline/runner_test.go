// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package pipeline

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/outboxpublisher/internal/circuitbreaker"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

type follower struct{ polls atomic.Int32 }

func (f *follower) PollLeadership(ctx context.Context) bool {
	f.polls.Add(1)
	select {
	case <-ctx.Done():
	case <-time.After(time.Millisecond):
	}
	return false
}

func (f *follower) IsLeader() bool { return false }

func enabledBreaker() *circuitbreaker.Breaker {
	return circuitbreaker.New("test", circuitbreaker.Config{
		Enabled:             true,
		Threshold:           2,
		Duration:            time.Hour,
		HalfOpenMaxAttempts: 1,
		OpenWait:            time.Millisecond,
	})
}

func noSleep(context.Context, time.Duration) {}

func TestStepOutcomes(t *testing.T) {
	persistErr := store.Wrap(store.OpGetOffset, "offsets", errors.New("db down"))

	t.Run("persistence errors open the breaker", func(t *testing.T) {
		cb := enabledBreaker()
		r := NewRunner("outbox", CycleFunc(func(context.Context) error { return persistErr }), nil, cb)
		r.sleep = noSleep

		r.Step(context.Background())
		r.Step(context.Background())
		if cb.State() != circuitbreaker.StateOpen {
			t.Errorf("state = %v, want open", cb.State())
		}
	})

	t.Run("other errors leave the breaker alone", func(t *testing.T) {
		cb := enabledBreaker()
		r := NewRunner("outbox", CycleFunc(func(context.Context) error { return errors.New("boom") }), nil, cb)
		r.sleep = noSleep

		for i := 0; i < 5; i++ {
			r.Step(context.Background())
		}
		if cb.Failures() != 0 {
			t.Errorf("failures = %d, want 0", cb.Failures())
		}
	})

	t.Run("success resets", func(t *testing.T) {
		cb := enabledBreaker()
		cb.RecordFailure()
		r := NewRunner("outbox", CycleFunc(func(context.Context) error { return nil }), nil, cb)

		r.Step(context.Background())
		if cb.Failures() != 0 {
			t.Errorf("failures = %d, want 0 after a clean cycle", cb.Failures())
		}
	})
}

func TestStepBacksOffAfterPersistenceErrors(t *testing.T) {
	persistErr := store.Wrap(store.OpGetOffset, "offsets", errors.New("db down"))
	var sleeps []time.Duration
	r := NewRunner("outbox", CycleFunc(func(context.Context) error { return persistErr }), nil,
		circuitbreaker.New("test", circuitbreaker.DefaultConfig()),
		WithErrorBackoff(10*time.Millisecond, 40*time.Millisecond))
	r.sleep = func(_ context.Context, d time.Duration) { sleeps = append(sleeps, d) }

	for i := 0; i < 6; i++ {
		r.Step(context.Background())
	}
	if len(sleeps) != 6 {
		t.Fatalf("sleeps = %d, want 6", len(sleeps))
	}
	for _, d := range sleeps {
		if d <= 0 || d > 60*time.Millisecond {
			t.Errorf("backoff %v outside bounds", d)
		}
	}
}

func TestRunSkipsCyclesForFollowers(t *testing.T) {
	var cycles atomic.Int32
	f := &follower{}
	r := NewRunner("outbox", CycleFunc(func(context.Context) error {
		cycles.Add(1)
		return nil
	}), f, enabledBreaker())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := r.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run = %v, want deadline exceeded", err)
	}
	if cycles.Load() != 0 {
		t.Errorf("follower ran %d cycles", cycles.Load())
	}
	if f.polls.Load() == 0 {
		t.Error("leadership was never polled")
	}
}

func TestRunPausesWhileBreakerOpen(t *testing.T) {
	cb := enabledBreaker()
	cb.RecordFailure()
	cb.RecordFailure()

	var cycles atomic.Int32
	r := NewRunner("recovery", CycleFunc(func(context.Context) error {
		cycles.Add(1)
		return nil
	}), nil, cb)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_ = r.Run(ctx)

	if cycles.Load() != 0 {
		t.Errorf("ran %d cycles with an open breaker", cycles.Load())
	}
	if got := r.BreakerState(); got != "open" {
		t.Errorf("BreakerState() = %q, want open", got)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := NewRunner("outbox", CycleFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}), nil, enabledBreaker())

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
