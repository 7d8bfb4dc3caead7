// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// newDuckDBStore opens an in-memory DuckDB store with the schema applied.
func newDuckDBStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(context.Background(), Config{
		Dialect:            DialectDuckDB,
		DSN:                "",
		AutoMigrate:        true,
		WriteRetryAttempts: 2,
		WriteRetryInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOffsetRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newDuckDBStore(t).Stores()

	got, err := st.Offsets.GetLatestOffset(ctx)
	if err != nil {
		t.Fatalf("GetLatestOffset() error = %v", err)
	}
	if got == nil || *got != 0 {
		t.Fatalf("GetLatestOffset() = %v, want seeded 0", got)
	}

	if err := st.Offsets.SetLatestOffset(ctx, 6); err != nil {
		t.Fatalf("SetLatestOffset() error = %v", err)
	}
	got, _ = st.Offsets.GetLatestOffset(ctx)
	if got == nil || *got != 6 {
		t.Errorf("GetLatestOffset() = %v, want 6", got)
	}
}

func TestEnsureSchemaIsIdempotent(t *testing.T) {
	s := newDuckDBStore(t)
	ctx := context.Background()

	if err := s.Stores().Offsets.SetLatestOffset(ctx, 10); err != nil {
		t.Fatal(err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		t.Fatalf("second EnsureSchema() error = %v", err)
	}

	got, _ := s.Stores().Offsets.GetLatestOffset(ctx)
	if got == nil || *got != 10 {
		t.Errorf("offset after re-migration = %v, want 10", got)
	}
}

func TestOutboxQueries(t *testing.T) {
	ctx := context.Background()
	st := newDuckDBStore(t).Stores()

	err := st.Writer.Append(ctx, []models.OutboxEvent{
		{Key: "1", Value: `{"n":1}`, Topic: "orders", Header: `{"key":"header"}`},
		{Key: "2", Value: `{"n":2}`, Topic: "orders"},
		{Key: "3", Value: `{"n":3}`, Topic: "orders"},
	})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	newest, ok, err := st.Outbox.GetNewestEventID(ctx, 0)
	if err != nil || !ok || newest != 1 {
		t.Fatalf("GetNewestEventID(0) = %d, %v, %v", newest, ok, err)
	}
	if _, ok, err := st.Outbox.GetNewestEventID(ctx, 3); err != nil || ok {
		t.Errorf("GetNewestEventID(3) = %v, %v; want no newer event", ok, err)
	}

	events, err := st.Outbox.GetEventsFrom(ctx, 2, 10)
	if err != nil {
		t.Fatalf("GetEventsFrom() error = %v", err)
	}
	if len(events) != 2 || events[0].ID != 2 || events[1].Key != "3" {
		t.Errorf("GetEventsFrom(2) = %+v", events)
	}

	byID, err := st.Outbox.GetEventsByID(ctx, []int64{1, 9})
	if err != nil {
		t.Fatalf("GetEventsByID() error = %v", err)
	}
	if len(byID) != 1 || byID[0].Header != `{"key":"header"}` || byID[0].Topic != "orders" {
		t.Errorf("GetEventsByID() = %+v", byID)
	}

	if empty, err := st.Outbox.GetEventsByID(ctx, nil); err != nil || empty != nil {
		t.Errorf("GetEventsByID(nil) = %v, %v", empty, err)
	}
}

func TestMissingAndExceeded(t *testing.T) {
	ctx := context.Background()
	s := newDuckDBStore(t)
	st := s.Stores()
	missed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	for _, id := range []int64{4, 3, 7} {
		if err := st.Missing.Insert(ctx, models.NewMissingEvent(id, missed)); err != nil {
			t.Fatalf("Insert(%d) error = %v", id, err)
		}
	}

	if err := st.Missing.IncrementRetryCount(ctx, []int64{3, 7}); err != nil {
		t.Fatalf("IncrementRetryCount() error = %v", err)
	}
	if err := st.Missing.UpdateRetryAndException(ctx, models.MissingEvent{ID: 4, RetryCount: 5, ExceptionThrown: true}); err != nil {
		t.Fatalf("UpdateRetryAndException() error = %v", err)
	}

	batch, err := st.Missing.GetBatch(ctx, 2)
	if err != nil {
		t.Fatalf("GetBatch() error = %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("GetBatch(2) returned %d events", len(batch))
	}
	if batch[0].ID != 3 || batch[0].RetryCount != 1 || batch[0].ExceptionThrown {
		t.Errorf("batch[0] = %+v", batch[0])
	}
	if batch[1].ID != 4 || batch[1].RetryCount != 5 || !batch[1].ExceptionThrown {
		t.Errorf("batch[1] = %+v", batch[1])
	}
	if !batch[0].MissedDate.Equal(missed) {
		t.Errorf("MissedDate = %v, want %v", batch[0].MissedDate, missed)
	}

	exceeded := batch[1].ToExceededEvent(missed.Add(time.Hour))
	if err := st.Exceeded.Insert(ctx, exceeded); err != nil {
		t.Fatalf("Exceeded.Insert() error = %v", err)
	}
	if err := st.Missing.DeleteByIDs(ctx, []int64{3, 4}); err != nil {
		t.Fatalf("DeleteByIDs() error = %v", err)
	}

	left, _ := st.Missing.GetBatch(ctx, 10)
	if len(left) != 1 || left[0].ID != 7 {
		t.Errorf("remaining backlog = %+v", left)
	}

	var count int
	if err := s.DB().QueryRowContext(ctx, "SELECT count(*) FROM exceeded_events WHERE id = 4 AND retry_count = 5").Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("exceeded rows = %d, want 1", count)
	}
}

func TestDuplicateMissingInsertKeepsExistingRow(t *testing.T) {
	ctx := context.Background()
	st := newDuckDBStore(t).Stores()
	now := time.Now()

	if err := st.Missing.Insert(ctx, models.NewMissingEvent(1, now)); err != nil {
		t.Fatal(err)
	}
	if err := st.Missing.IncrementRetryCount(ctx, []int64{1}); err != nil {
		t.Fatal(err)
	}
	if err := st.Missing.Insert(ctx, models.NewMissingEvent(1, now)); err != nil {
		t.Fatalf("second Insert() error = %v, want nil", err)
	}

	batch, err := st.Missing.GetBatch(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 1 || batch[0].RetryCount != 1 {
		t.Errorf("backlog = %+v, want one row with retry count 1", batch)
	}
}

func TestClosedStoreReturnsPersistenceErrors(t *testing.T) {
	s := newDuckDBStore(t)
	_ = s.Close()

	_, err := s.Stores().Offsets.GetLatestOffset(context.Background())
	if !store.IsPersistence(err) {
		t.Errorf("GetLatestOffset() on closed store = %v, want persistence error", err)
	}
}

func TestRetryPolicyStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := retryPolicy{attempts: 5, interval: time.Millisecond}

	calls := 0
	err := p.do(ctx, "test", func(context.Context) error {
		calls++
		cancel()
		return errors.New("write failed")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 after cancellation", calls)
	}
}

func TestRetryPolicyRetriesUntilSuccess(t *testing.T) {
	p := retryPolicy{attempts: 3, interval: time.Millisecond}

	calls := 0
	err := p.do(context.Background(), "test", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("do() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}
