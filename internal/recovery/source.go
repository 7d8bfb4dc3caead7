// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/outboxpublisher/internal/metrics"
	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/pipeline/wait"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// Source reads batches of the backlog.
type Source struct {
	missing   store.MissingEventStore
	batchSize int
}

// NewSource returns a Source reading up to batchSize records.
func NewSource(missing store.MissingEventStore, batchSize int) *Source {
	return &Source{missing: missing, batchSize: batchSize}
}

// GetBatch returns the next batch of backlog records.
func (s *Source) GetBatch(ctx context.Context) ([]models.MissingEvent, error) {
	batch, err := s.missing.GetBatch(ctx, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("read missing events: %w", err)
	}
	metrics.MissingBacklogSize.Set(float64(len(batch)))
	return batch, nil
}

// BatchSource yields backlog batches.
type BatchSource interface {
	GetBatch(ctx context.Context) ([]models.MissingEvent, error)
}

// Queue pulls backlog batches and pauses on empty ones.
type Queue struct {
	source BatchSource
	wait   time.Duration
	sleep  func(ctx context.Context, d time.Duration)
}

// NewQueue returns a Queue that waits wait after an empty batch.
func NewQueue(source BatchSource, waitFor time.Duration) *Queue {
	return &Queue{source: source, wait: waitFor, sleep: wait.Sleep}
}

// Dequeue returns the next batch.
func (q *Queue) Dequeue(ctx context.Context) ([]models.MissingEvent, error) {
	batch, err := q.source.GetBatch(ctx)
	if err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		q.sleep(ctx, q.wait)
	}
	return batch, nil
}
