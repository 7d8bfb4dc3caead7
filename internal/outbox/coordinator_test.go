// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package outbox

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/tomtom215/outboxpublisher/internal/broker"
	"github.com/tomtom215/outboxpublisher/internal/broker/brokertest"
	"github.com/tomtom215/outboxpublisher/internal/dispatch"
	"github.com/tomtom215/outboxpublisher/internal/store"
	"github.com/tomtom215/outboxpublisher/internal/store/memory"
)

func noSleep(context.Context, time.Duration) {}

type harness struct {
	mem  *memory.Store
	fake *brokertest.Fake
	c    *Coordinator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mem := memory.New()
	fake := brokertest.New()
	stores := mem.Stores()
	d := dispatch.New(fake, stores.Missing, dispatch.DefaultConfig())
	c := NewCoordinator(stores, d, DefaultConfig())
	c.queue.sleep = noSleep
	c.queue.source.(*Source).sleep = noSleep
	return &harness{mem: mem, fake: fake, c: c}
}

func (h *harness) setOffset(t *testing.T, v int64) {
	t.Helper()
	if err := h.mem.SetLatestOffset(context.Background(), v); err != nil {
		t.Fatal(err)
	}
}

func TestRunCyclePublishesAndAdvances(t *testing.T) {
	h := newHarness(t)
	h.setOffset(t, 0)
	h.mem.Seed(events(1, 2, 5, 6)...)

	if err := h.c.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	if got := h.fake.PublishedIDs(); !reflect.DeepEqual(got, []int64{1, 2, 5, 6}) {
		t.Errorf("published = %v", got)
	}
	if off := h.mem.Offset(); off == nil || *off != 6 {
		t.Errorf("offset = %v, want 6", off)
	}
	missing := h.mem.Missing()
	if len(missing) != 2 || missing[0].ID != 3 || missing[1].ID != 4 {
		t.Errorf("missing = %+v, want ids 3 and 4", missing)
	}
}

func TestRunCycleResumesAfterOffset(t *testing.T) {
	h := newHarness(t)
	h.setOffset(t, 0)
	h.mem.Seed(events(1, 2)...)
	if err := h.c.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	h.mem.Seed(events(3, 4)...)
	if err := h.c.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := h.fake.PublishedIDs(); !reflect.DeepEqual(got, []int64{1, 2, 3, 4}) {
		t.Errorf("published = %v", got)
	}
	if len(h.mem.Missing()) != 0 {
		t.Error("no gaps expected")
	}
}

func TestRunCycleRespectsBatchSize(t *testing.T) {
	mem := memory.New()
	fake := brokertest.New()
	stores := mem.Stores()
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	c := NewCoordinator(stores, dispatch.New(fake, stores.Missing, dispatch.DefaultConfig()), cfg)
	c.queue.sleep = noSleep
	_ = mem.SetLatestOffset(context.Background(), 0)
	mem.Seed(events(1, 2, 3)...)

	if err := c.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if off := mem.Offset(); *off != 2 {
		t.Errorf("offset = %d, want 2", *off)
	}
}

func TestRunCycleFailedPublishBecomesMissing(t *testing.T) {
	h := newHarness(t)
	h.setOffset(t, 0)
	h.mem.Seed(events(1, 2, 3)...)
	h.fake.FailID(2, broker.NewError(broker.KindUnavailable, "t", errors.New("down")))

	if err := h.c.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if off := h.mem.Offset(); *off != 3 {
		t.Errorf("offset = %d, want 3", *off)
	}
	missing := h.mem.Missing()
	if len(missing) != 1 || missing[0].ID != 2 || !missing[0].ExceptionThrown {
		t.Errorf("missing = %+v", missing)
	}
}

func TestRunCycleUnrecordedFailureStillAdvances(t *testing.T) {
	h := newHarness(t)
	h.setOffset(t, 0)
	h.mem.Seed(events(1, 2)...)
	h.fake.FailID(2, broker.NewError(broker.KindDeliveryFailed, "t", errors.New("rejected")))
	h.mem.FailOn(store.OpInsertMissing, errors.New("db down"))

	err := h.c.RunCycle(context.Background())
	if !store.IsPersistence(err) {
		t.Fatalf("want persistence error, got %v", err)
	}
	if off := h.mem.Offset(); off == nil || *off != 2 {
		t.Errorf("offset = %v, want 2", off)
	}
}

func TestRunCycleNoOffset(t *testing.T) {
	h := newHarness(t)
	h.mem.Seed(events(1)...)

	if err := h.c.RunCycle(context.Background()); err != nil {
		t.Fatalf("RunCycle: %v", err)
	}
	if len(h.fake.Published()) != 0 {
		t.Error("nothing should be published without an offset row")
	}
}

func TestRunCycleEmptyWaits(t *testing.T) {
	h := newHarness(t)
	h.setOffset(t, 0)
	var waited []time.Duration
	h.c.queue.sleep = func(_ context.Context, d time.Duration) { waited = append(waited, d) }

	if err := h.c.RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(waited) != 1 || waited[0] != DefaultConfig().QueueWaitDuration {
		t.Errorf("waited = %v", waited)
	}
}

func TestRunCycleStoreErrors(t *testing.T) {
	for _, op := range []string{store.OpGetOffset, store.OpGetNewestEventID, store.OpGetEventsFrom, store.OpSetOffset} {
		t.Run(op, func(t *testing.T) {
			h := newHarness(t)
			h.setOffset(t, 0)
			h.mem.Seed(events(1)...)
			h.mem.FailOn(op, errors.New("db down"))

			if err := h.c.RunCycle(context.Background()); !store.IsPersistence(err) {
				t.Errorf("want persistence error, got %v", err)
			}
		})
	}
}

func TestRunCycleRecoversAfterFailedOffsetWrite(t *testing.T) {
	h := newHarness(t)
	h.setOffset(t, 0)
	h.mem.Seed(events(1, 2, 5, 6)...)
	ctx := context.Background()

	h.mem.FailOn(store.OpSetOffset, errors.New("connection reset"))
	if err := h.c.RunCycle(ctx); !store.IsPersistence(err) {
		t.Fatalf("first cycle: want persistence error, got %v", err)
	}
	if off := h.mem.Offset(); off == nil || *off != 0 {
		t.Fatalf("offset after failed write = %v, want 0", off)
	}

	h.mem.FailOn(store.OpSetOffset, nil)
	if err := h.c.RunCycle(ctx); err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if off := h.mem.Offset(); off == nil || *off != 6 {
		t.Errorf("offset = %v, want 6", off)
	}
	missing := h.mem.Missing()
	if len(missing) != 2 || missing[0].ID != 3 || missing[1].ID != 4 {
		t.Errorf("missing = %+v, want ids 3 and 4 once each", missing)
	}
}
