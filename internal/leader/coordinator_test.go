// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package leader

import (
	"context"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Resource:       "res",
		RaceInterval:   10 * time.Millisecond,
		CheckInterval:  5 * time.Millisecond,
		Lifetime:       time.Minute,
		ReleaseTimeout: time.Second,
	}
}

func TestCoordinatorExclusive(t *testing.T) {
	store := NewMemoryLockStore()
	a := NewCoordinator(NewLock(store, "res", "a"), testConfig())
	b := NewCoordinator(NewLock(store, "res", "b"), testConfig())
	ctx := context.Background()

	if !a.Race(ctx) {
		t.Fatal("a should win the first race")
	}
	if b.Race(ctx) {
		t.Fatal("b must not win while a holds the lock")
	}
	if !a.Race(ctx) {
		t.Fatal("a should extend its lease")
	}
	if !a.PollLeadership(ctx) {
		t.Error("leader PollLeadership should be true")
	}

	start := time.Now()
	if b.PollLeadership(ctx) {
		t.Error("follower PollLeadership should be false")
	}
	if time.Since(start) < testConfig().CheckInterval {
		t.Error("follower should wait the check interval")
	}

	a.Release(ctx)
	if a.IsLeader() {
		t.Error("a should not be leader after release")
	}
	if !b.Race(ctx) {
		t.Error("b should take the released lock")
	}
}

func TestCoordinatorPollRespectsCancel(t *testing.T) {
	cfg := testConfig()
	cfg.CheckInterval = time.Hour
	c := NewCoordinator(NewLock(NewMemoryLockStore(), "res", "a"), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan bool, 1)
	go func() { done <- c.PollLeadership(ctx) }()

	select {
	case got := <-done:
		if got {
			t.Error("follower should not report leadership")
		}
	case <-time.After(time.Second):
		t.Fatal("PollLeadership ignored cancellation")
	}
}

func TestCoordinatorRunReleasesOnShutdown(t *testing.T) {
	store := NewMemoryLockStore()
	c := NewCoordinator(NewLock(store, "res", "a"), testConfig())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- c.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for !c.IsLeader() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if !c.IsLeader() {
		t.Fatal("coordinator never became leader")
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	if ok, _ := store.Take(context.Background(), "res", "b", time.Minute); !ok {
		t.Error("lock should be free after shutdown")
	}
}

func TestAlwaysLeader(t *testing.T) {
	var e Elector = AlwaysLeader{}
	if !e.PollLeadership(context.Background()) || !e.IsLeader() {
		t.Error("AlwaysLeader must always lead")
	}
}

func TestResolveToken(t *testing.T) {
	if got := ResolveToken("  node-1 "); got != "node-1" {
		t.Errorf("configured token = %q", got)
	}

	t.Setenv("HOSTNAME", "pod-abc")
	if got := ResolveToken(""); got != "pod-abc" {
		t.Errorf("HOSTNAME token = %q", got)
	}

	t.Setenv("HOSTNAME", "")
	if got := ResolveToken(""); got == "" {
		t.Error("fallback token must not be empty")
	}
}
