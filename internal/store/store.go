// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

// Package store defines the datastore contracts consumed by the publishing
// pipelines and the persistence error kind every backend reports.
//
// Implementations live in sub-packages:
//
//   - sqlstore: database/sql backends (postgres, mysql, oracle, duckdb)
//   - memory: in-process store for local runs and tests
package store

import (
	"context"

	"github.com/tomtom215/outboxpublisher/internal/models"
)

// OffsetStore persists the outbox cursor.
type OffsetStore interface {
	// GetLatestOffset returns nil when no offset row exists.
	GetLatestOffset(ctx context.Context) (*int64, error)
	SetLatestOffset(ctx context.Context, offset int64) error
}

// OutboxEventStore reads the outbox table.
type OutboxEventStore interface {
	GetEventsByID(ctx context.Context, ids []int64) ([]models.OutboxEvent, error)
	// GetNewestEventID returns the first event id greater than after.
	// The boolean is false when there is none.
	GetNewestEventID(ctx context.Context, after int64) (int64, bool, error)
	// GetEventsFrom returns up to limit events with id >= newestID, ordered by id.
	GetEventsFrom(ctx context.Context, newestID int64, limit int) ([]models.OutboxEvent, error)
}

// MissingEventStore holds the missing event backlog.
type MissingEventStore interface {
	// Insert is a no-op when a row with the same id already exists.
	Insert(ctx context.Context, event models.MissingEvent) error
	UpdateRetryAndException(ctx context.Context, event models.MissingEvent) error
	GetBatch(ctx context.Context, limit int) ([]models.MissingEvent, error)
	IncrementRetryCount(ctx context.Context, ids []int64) error
	DeleteByIDs(ctx context.Context, ids []int64) error
}

// ExceededEventStore appends terminal records.
type ExceededEventStore interface {
	Insert(ctx context.Context, event models.ExceededEvent) error
}

// OutboxWriter appends rows to the outbox table the way producing services
// do. It is used for seeding demo data.
type OutboxWriter interface {
	Append(ctx context.Context, events []models.OutboxEvent) error
}

// Pinger reports datastore reachability for readiness checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Stores bundles the four stores a relay needs.
type Stores struct {
	Offsets  OffsetStore
	Outbox   OutboxEventStore
	Missing  MissingEventStore
	Exceeded ExceededEventStore
	Writer   OutboxWriter
	Pinger   Pinger
	Close    func() error
}
