// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

// TestRecordStoreOperation tests datastore metric recording
func TestRecordStoreOperation(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		err       error
		wantErr   float64
	}{
		{name: "successful select", operation: "get_events_from", table: "outbox_events_ok"},
		{name: "failed update", operation: "set_offset", table: "outbox_offset_fail", err: errors.New("connection refused"), wantErr: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordStoreOperation(tt.operation, tt.table, 5*time.Millisecond, tt.err)

			got := testutil.ToFloat64(StoreOperationErrors.WithLabelValues(tt.operation, tt.table))
			if got != tt.wantErr {
				t.Errorf("errors counter = %v, want %v", got, tt.wantErr)
			}
		})
	}
}

// TestRecordPublish tests publish outcome counters
func TestRecordPublish(t *testing.T) {
	before := testutil.ToFloat64(EventsPublished.WithLabelValues("missing", "delivery_failed"))

	RecordPublish("missing", "delivery_failed", 2*time.Millisecond)
	RecordPublish("missing", "delivery_failed", 0)

	after := testutil.ToFloat64(EventsPublished.WithLabelValues("missing", "delivery_failed"))
	if after-before != 2 {
		t.Errorf("publish counter delta = %v, want 2", after-before)
	}
}

// TestSetLeader tests the leader gauge
func TestSetLeader(t *testing.T) {
	SetLeader(true)
	if got := testutil.ToFloat64(LeaderStatus); got != 1 {
		t.Errorf("LeaderStatus = %v, want 1", got)
	}

	SetLeader(false)
	if got := testutil.ToFloat64(LeaderStatus); got != 0 {
		t.Errorf("LeaderStatus = %v, want 0", got)
	}
}

// TestRecordLockOperation tests lock result labelling
func TestRecordLockOperation(t *testing.T) {
	cases := []struct {
		acquired bool
		err      error
		result   string
	}{
		{acquired: true, result: "acquired"},
		{acquired: false, result: "denied"},
		{acquired: true, err: errors.New("kv unavailable"), result: "error"},
	}

	for _, c := range cases {
		before := testutil.ToFloat64(LockOperations.WithLabelValues("take", c.result))
		RecordLockOperation("take", c.acquired, c.err)
		after := testutil.ToFloat64(LockOperations.WithLabelValues("take", c.result))
		if after-before != 1 {
			t.Errorf("result %q delta = %v, want 1", c.result, after-before)
		}
	}
}

// TestRecordOutboxBatch tests gap counting
func TestRecordOutboxBatch(t *testing.T) {
	before := testutil.ToFloat64(GapsDetected)
	RecordOutboxBatch(4, 2)
	RecordOutboxBatch(3, 0)
	if delta := testutil.ToFloat64(GapsDetected) - before; delta != 2 {
		t.Errorf("gaps delta = %v, want 2", delta)
	}
}
