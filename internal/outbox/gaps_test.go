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

	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/store"
	"github.com/tomtom215/outboxpublisher/internal/store/memory"
)

func events(ids ...int64) []models.OutboxEvent {
	out := make([]models.OutboxEvent, len(ids))
	for i, id := range ids {
		out[i] = models.OutboxEvent{ID: id, Topic: "outbox.test", Value: "v"}
	}
	return out
}

func offsetPtr(v int64) *int64 { return &v }

func TestFindMissing(t *testing.T) {
	tests := []struct {
		name   string
		ids    []int64
		offset int64
		want   []int64
	}{
		{"empty", nil, 0, nil},
		{"contiguous", []int64{1, 2, 3}, 0, nil},
		{"leading and inner gaps", []int64{1, 2, 5, 6}, 0, []int64{3, 4}},
		{"leading gap only", []int64{4, 5}, 1, []int64{2, 3}},
		{"unsorted input", []int64{9, 3, 6}, 2, []int64{4, 5, 7, 8}},
		{"duplicates", []int64{3, 3, 5}, 2, []int64{4}},
		{"first equals offset plus one", []int64{11, 13}, 10, []int64{12}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindMissing(events(tt.ids...), tt.offset)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindMissing = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectRecordsGaps(t *testing.T) {
	mem := memory.New()
	d := NewGapDetector(mem.Stores().Missing)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return fixed }

	ids, err := d.Detect(context.Background(), models.OutboxEventsBatch{
		Events:       events(1, 2, 5, 6),
		LatestOffset: offsetPtr(0),
	})
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{3, 4}) {
		t.Fatalf("ids = %v", ids)
	}

	missing := mem.Missing()
	if len(missing) != 2 {
		t.Fatalf("missing = %+v", missing)
	}
	for _, m := range missing {
		if m.RetryCount != 0 || m.ExceptionThrown || !m.MissedDate.Equal(fixed) {
			t.Errorf("unexpected record %+v", m)
		}
	}
}

func TestDetectNothing(t *testing.T) {
	mem := memory.New()
	d := NewGapDetector(mem.Stores().Missing)
	ctx := context.Background()

	if ids, err := d.Detect(ctx, models.OutboxEventsBatch{LatestOffset: offsetPtr(0)}); err != nil || ids != nil {
		t.Errorf("empty batch: ids=%v err=%v", ids, err)
	}
	if ids, err := d.Detect(ctx, models.OutboxEventsBatch{Events: events(5, 9)}); err != nil || ids != nil {
		t.Errorf("nil offset: ids=%v err=%v", ids, err)
	}
	if mem.Calls(store.OpInsertMissing) != 0 {
		t.Error("nothing should be inserted")
	}
}

func TestDetectPropagatesStoreErrors(t *testing.T) {
	mem := memory.New()
	mem.FailOn(store.OpInsertMissing, errors.New("db down"))
	d := NewGapDetector(mem.Stores().Missing)

	_, err := d.Detect(context.Background(), models.OutboxEventsBatch{
		Events:       events(3),
		LatestOffset: offsetPtr(0),
	})
	if !store.IsPersistence(err) {
		t.Fatalf("want persistence error, got %v", err)
	}
}

func TestDetectTwiceKeepsBacklogState(t *testing.T) {
	mem := memory.New()
	d := NewGapDetector(mem.Stores().Missing)
	ctx := context.Background()
	batch := models.OutboxEventsBatch{Events: events(1, 4), LatestOffset: offsetPtr(0)}

	if _, err := d.Detect(ctx, batch); err != nil {
		t.Fatal(err)
	}
	if err := mem.Stores().Missing.IncrementRetryCount(ctx, []int64{2}); err != nil {
		t.Fatal(err)
	}
	ids, err := d.Detect(ctx, batch)
	if err != nil {
		t.Fatalf("second Detect: %v", err)
	}
	if !reflect.DeepEqual(ids, []int64{2, 3}) {
		t.Errorf("ids = %v", ids)
	}

	missing := mem.Missing()
	if len(missing) != 2 || missing[0].RetryCount != 1 || missing[1].RetryCount != 0 {
		t.Errorf("missing = %+v, want retry counts kept", missing)
	}
}
