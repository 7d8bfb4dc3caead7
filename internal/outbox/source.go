// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package outbox

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/pipeline/wait"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// Source reads the next window of outbox rows above the committed offset.
type Source struct {
	offsets          store.OffsetStore
	outbox           store.OutboxEventStore
	batchSize        int
	noNewEventsDelay time.Duration
	sleep            func(ctx context.Context, d time.Duration)
}

// NewSource returns a Source fetching up to batchSize rows per window.
func NewSource(offsets store.OffsetStore, outbox store.OutboxEventStore, batchSize int, noNewEventsDelay time.Duration) *Source {
	return &Source{
		offsets:          offsets,
		outbox:           outbox,
		batchSize:        batchSize,
		noNewEventsDelay: noNewEventsDelay,
		sleep:            wait.Sleep,
	}
}

// GetNextBatch returns the rows from the first id above the offset. A
// missing offset row is logged and yields an empty batch. When nothing is
// newer it waits the no-new-events delay and returns an empty batch.
func (s *Source) GetNextBatch(ctx context.Context) (models.OutboxEventsBatch, error) {
	offset, err := s.offsets.GetLatestOffset(ctx)
	if err != nil {
		return models.OutboxEventsBatch{}, fmt.Errorf("read offset: %w", err)
	}
	if offset == nil {
		logging.Ctx(ctx).Error().Msg("no outbox offset row found, seed the offset table")
		return models.OutboxEventsBatch{}, nil
	}

	newest, ok, err := s.outbox.GetNewestEventID(ctx, *offset)
	if err != nil {
		return models.OutboxEventsBatch{}, fmt.Errorf("find newest event after %d: %w", *offset, err)
	}
	if !ok {
		s.sleep(ctx, s.noNewEventsDelay)
		return models.OutboxEventsBatch{LatestOffset: offset}, nil
	}

	events, err := s.outbox.GetEventsFrom(ctx, newest, s.batchSize)
	if err != nil {
		return models.OutboxEventsBatch{}, fmt.Errorf("fetch events from %d: %w", newest, err)
	}
	return models.OutboxEventsBatch{Events: events, LatestOffset: offset}, nil
}

// BatchSource yields outbox windows.
type BatchSource interface {
	GetNextBatch(ctx context.Context) (models.OutboxEventsBatch, error)
}

// Queue pulls windows from a source and pauses on empty ones.
type Queue struct {
	source BatchSource
	wait   time.Duration
	sleep  func(ctx context.Context, d time.Duration)
}

// NewQueue returns a Queue that waits wait after an empty window.
func NewQueue(source BatchSource, waitFor time.Duration) *Queue {
	return &Queue{source: source, wait: waitFor, sleep: wait.Sleep}
}

// Dequeue returns the next window.
func (q *Queue) Dequeue(ctx context.Context) (models.OutboxEventsBatch, error) {
	batch, err := q.source.GetNextBatch(ctx)
	if err != nil {
		return models.OutboxEventsBatch{}, err
	}
	if batch.IsEmpty() {
		q.sleep(ctx, q.wait)
	}
	return batch, nil
}
