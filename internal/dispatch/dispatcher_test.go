// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/outboxpublisher/internal/broker"
	"github.com/tomtom215/outboxpublisher/internal/broker/brokertest"
	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/store"
	"github.com/tomtom215/outboxpublisher/internal/store/memory"
)

var (
	errUnavailable = broker.NewError(broker.KindUnavailable, "t", errors.New("no servers"))
	errDelivery    = broker.NewError(broker.KindDeliveryFailed, "t", errors.New("rejected"))
	errOther       = broker.NewError(broker.KindOther, "t", errors.New("bad header"))
)

type fixture struct {
	fake   *brokertest.Fake
	mem    *memory.Store
	d      *Dispatcher
	sleeps []time.Duration
}

func newFixture(cfg Config) *fixture {
	f := &fixture{fake: brokertest.New(), mem: memory.New()}
	f.d = New(f.fake, f.mem.Stores().Missing, cfg)
	f.d.sleep = func(_ context.Context, d time.Duration) { f.sleeps = append(f.sleeps, d) }
	return f
}

func event(id int64) models.OutboxEvent {
	return models.OutboxEvent{ID: id, Key: "k", Value: "v", Topic: "outbox.test"}
}

func mapped(id int64, retry int) models.MappedMissingEvent {
	return models.MappedMissingEvent{
		MissingEvent: models.MissingEvent{ID: id, RetryCount: retry},
		OutboxEvent:  event(id),
	}
}

func TestDispatchSuccess(t *testing.T) {
	f := newFixture(DefaultConfig())
	if err := f.d.Dispatch(context.Background(), event(1)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if len(f.fake.Published()) != 1 {
		t.Fatal("event not published")
	}
	if len(f.mem.Missing()) != 0 {
		t.Error("no missing event expected")
	}
}

func TestDispatchFailureRecordsMissing(t *testing.T) {
	for _, cause := range []error{errUnavailable, errDelivery, errOther} {
		t.Run(broker.KindOf(cause).String(), func(t *testing.T) {
			f := newFixture(DefaultConfig())
			f.fake.FailID(3, cause)

			if err := f.d.Dispatch(context.Background(), event(3)); err != nil {
				t.Fatalf("Dispatch: %v", err)
			}
			missing := f.mem.Missing()
			if len(missing) != 1 || missing[0].ID != 3 {
				t.Fatalf("missing = %+v", missing)
			}
			if !missing[0].ExceptionThrown || missing[0].RetryCount != 0 {
				t.Errorf("unexpected record %+v", missing[0])
			}
		})
	}
}

func TestDispatchReturnsOnlyPersistenceErrors(t *testing.T) {
	f := newFixture(DefaultConfig())
	f.fake.FailID(3, errUnavailable)
	f.mem.FailOn(store.OpInsertMissing, errors.New("db down"))

	err := f.d.Dispatch(context.Background(), event(3))
	if !store.IsPersistence(err) {
		t.Fatalf("want persistence error, got %v", err)
	}
}

func TestDispatchPublishingDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PublishingEnabled = false
	f := newFixture(cfg)
	f.fake.FailAll(errUnavailable)

	if err := f.d.Dispatch(context.Background(), event(1)); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if f.fake.Attempts(1) != 0 {
		t.Error("broker must not be called while publishing is disabled")
	}
	if len(f.mem.Missing()) != 0 {
		t.Error("skipped events count as delivered")
	}

	f.d.SetPublishingEnabled(true)
	_ = f.d.Dispatch(context.Background(), event(2))
	if f.fake.Attempts(2) != 1 {
		t.Error("publishing should resume after the switch is turned on")
	}
}

func TestDispatchMissing(t *testing.T) {
	tests := []struct {
		name       string
		cause      error
		retry      int
		wantRetry  int
		wantThrown bool
		wantUpdate bool
		wantSleep  bool
	}{
		{"success", nil, 1, 1, false, false, false},
		{"unavailable", errUnavailable, 1, 1, true, false, false},
		{"delivery below cap", errDelivery, 1, 2, true, true, true},
		{"delivery at cap", errDelivery, 5, 5, true, false, false},
		{"other below cap", errOther, 0, 1, true, true, false},
		{"other at cap", errOther, 5, 5, true, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(DefaultConfig())
			f.mem.SeedMissing(models.MissingEvent{ID: 9, RetryCount: tt.retry})
			if tt.cause != nil {
				f.fake.FailID(9, tt.cause)
			}

			got, err := f.d.DispatchMissing(context.Background(), mapped(9, tt.retry))
			if err != nil {
				t.Fatalf("DispatchMissing: %v", err)
			}
			if got.MissingEvent.RetryCount != tt.wantRetry {
				t.Errorf("retry = %d, want %d", got.MissingEvent.RetryCount, tt.wantRetry)
			}
			if got.MissingEvent.ExceptionThrown != tt.wantThrown {
				t.Errorf("thrown = %v, want %v", got.MissingEvent.ExceptionThrown, tt.wantThrown)
			}
			if updated := f.mem.Calls(store.OpUpdateMissing) > 0; updated != tt.wantUpdate {
				t.Errorf("update called = %v, want %v", updated, tt.wantUpdate)
			}
			if tt.wantUpdate {
				stored := f.mem.Missing()[0]
				if stored.RetryCount != tt.wantRetry || !stored.ExceptionThrown {
					t.Errorf("stored record %+v not updated", stored)
				}
			}
			if slept := len(f.sleeps) > 0; slept != tt.wantSleep {
				t.Errorf("slept = %v, want %v", slept, tt.wantSleep)
			}
		})
	}
}

func TestDispatchMissingRetryCap(t *testing.T) {
	f := newFixture(DefaultConfig())
	f.mem.SeedMissing(models.MissingEvent{ID: 4})
	f.fake.FailID(4, errDelivery)

	m := mapped(4, 0)
	for i := 0; i < 10; i++ {
		var err error
		m, err = f.d.DispatchMissing(context.Background(), m)
		if err != nil {
			t.Fatalf("DispatchMissing #%d: %v", i, err)
		}
	}
	if m.MissingEvent.RetryCount != DefaultConfig().BrokerErrorsMaxRetryCount {
		t.Errorf("retry count = %d, want capped at %d", m.MissingEvent.RetryCount, DefaultConfig().BrokerErrorsMaxRetryCount)
	}
}

func TestDispatchMissingUpdateErrorPropagates(t *testing.T) {
	f := newFixture(DefaultConfig())
	f.fake.FailID(4, errDelivery)
	f.mem.FailOn(store.OpUpdateMissing, errors.New("db down"))

	got, err := f.d.DispatchMissing(context.Background(), mapped(4, 0))
	if !store.IsPersistence(err) {
		t.Fatalf("want persistence error, got %v", err)
	}
	if !got.MissingEvent.ExceptionThrown {
		t.Error("result should still carry the failure flag")
	}
	if len(f.sleeps) != 0 {
		t.Error("no redelivery delay after a failed update")
	}
}
