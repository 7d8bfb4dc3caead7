// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package models

import (
	"time"
)

// OutboxEvent is a row of the outbox table.
type OutboxEvent struct {
	ID     int64  `json:"id" db:"id"`
	Key    string `json:"key" db:"key"`
	Value  string `json:"value" db:"value"`
	Topic  string `json:"topic" db:"topic"`
	Header string `json:"header,omitempty" db:"header"` // JSON object of string to string
}

// ToMissingEvent returns a fresh backlog record for the event.
func (e OutboxEvent) ToMissingEvent(now time.Time) MissingEvent {
	return MissingEvent{ID: e.ID, MissedDate: now.UTC()}
}

// MissingEvent is a backlog record for an outbox ID that was skipped by the
// poller or whose first publish attempt failed.
type MissingEvent struct {
	ID              int64     `json:"id" db:"id"`
	MissedDate      time.Time `json:"missed_date" db:"missed_date"`
	RetryCount      int       `json:"retry_count" db:"retry_count"`
	ExceptionThrown bool      `json:"exception_thrown" db:"exception_thrown"`
}

// NewMissingEvent returns a backlog record for an ID detected as a gap.
func NewMissingEvent(id int64, now time.Time) MissingEvent {
	return MissingEvent{ID: id, MissedDate: now.UTC()}
}

// IsRetryCountLessThan reports whether another retry is permitted under limit.
func (m MissingEvent) IsRetryCountLessThan(limit int) bool {
	return m.RetryCount < limit
}

// ToExceededEvent builds the terminal record for the event.
func (m MissingEvent) ToExceededEvent(now time.Time) ExceededEvent {
	return ExceededEvent{
		ID:              m.ID,
		MissedDate:      m.MissedDate,
		RetryCount:      m.RetryCount,
		ExceededDate:    now.UTC(),
		ExceptionThrown: m.ExceptionThrown,
	}
}

// ExceededEvent is the append-only audit record of an event that exhausted
// its retry budget.
type ExceededEvent struct {
	ID              int64     `json:"id" db:"id"`
	MissedDate      time.Time `json:"missed_date" db:"missed_date"`
	RetryCount      int       `json:"retry_count" db:"retry_count"`
	ExceededDate    time.Time `json:"exceeded_date" db:"exceeded_date"`
	ExceptionThrown bool      `json:"exception_thrown" db:"exception_thrown"`
}

// MappedMissingEvent pairs a backlog record with its now-visible outbox row.
type MappedMissingEvent struct {
	MissingEvent MissingEvent
	OutboxEvent  OutboxEvent
}

// OutboxEventsBatch is one window fetched by the outbox pipeline together with
// the offset it was fetched after. LatestOffset is nil when no offset has been
// recorded yet.
type OutboxEventsBatch struct {
	Events       []OutboxEvent
	LatestOffset *int64
}

// IsEmpty reports whether the batch carries no events.
func (b OutboxEventsBatch) IsEmpty() bool {
	return len(b.Events) == 0
}

// MaxID returns the highest event ID in the batch, or 0 for an empty batch.
func (b OutboxEventsBatch) MaxID() int64 {
	var highest int64
	for i, e := range b.Events {
		if i == 0 || e.ID > highest {
			highest = e.ID
		}
	}
	return highest
}

// MissingEventIDs returns the IDs of the given missing events in order.
func MissingEventIDs(events []MissingEvent) []int64 {
	ids := make([]int64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	return ids
}
