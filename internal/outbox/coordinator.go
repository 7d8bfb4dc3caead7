// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package outbox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/metrics"
	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// PipelineName labels the outbox pipeline in logs and metrics.
const PipelineName = "outbox"

// Config holds outbox pipeline settings.
type Config struct {
	BatchSize         int
	QueueWaitDuration time.Duration
	NoNewEventsDelay  time.Duration
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:         5000,
		QueueWaitDuration: 100 * time.Millisecond,
		NoNewEventsDelay:  200 * time.Millisecond,
	}
}

// Dispatcher publishes one polled event. Only persistence errors are
// returned.
type Dispatcher interface {
	Dispatch(ctx context.Context, event models.OutboxEvent) error
}

// Coordinator runs outbox cycles.
type Coordinator struct {
	queue      *Queue
	detector   *GapDetector
	dispatcher Dispatcher
	offsets    store.OffsetStore
	batchSize  int
}

// NewCoordinator wires a coordinator over stores.
func NewCoordinator(stores store.Stores, dispatcher Dispatcher, cfg Config) *Coordinator {
	source := NewSource(stores.Offsets, stores.Outbox, cfg.BatchSize, cfg.NoNewEventsDelay)
	return &Coordinator{
		queue:      NewQueue(source, cfg.QueueWaitDuration),
		detector:   NewGapDetector(stores.Missing),
		dispatcher: dispatcher,
		offsets:    stores.Offsets,
		batchSize:  cfg.BatchSize,
	}
}

// RunCycle processes one window. Publishing and the offset write run to
// completion even if ctx is canceled once the window has been fetched.
func (c *Coordinator) RunCycle(ctx context.Context) error {
	batch, err := c.queue.Dequeue(ctx)
	if err != nil {
		return err
	}
	if batch.IsEmpty() {
		return nil
	}

	gaps, err := c.detector.Detect(ctx, batch)
	if err != nil {
		return err
	}
	metrics.RecordOutboxBatch(len(batch.Events), len(gaps))

	work := context.WithoutCancel(ctx)
	failed, firstErr := c.dispatchAll(work, batch.Events)

	maxID := batch.MaxID()
	if err := c.offsets.SetLatestOffset(work, maxID); err != nil {
		return fmt.Errorf("advance offset to %d: %w", maxID, err)
	}
	metrics.OutboxOffset.Set(float64(maxID))

	log := logging.Ctx(ctx)
	if len(failed) > 0 {
		log.Error().
			Ints64("event_ids", failed).
			Int64("offset", maxID).
			Msg("events failed to publish and could not be recorded as missing")
		return fmt.Errorf("%d failed dispatches not recorded: %w", len(failed), firstErr)
	}

	log.Debug().
		Int("events", len(batch.Events)).
		Int("gaps", len(gaps)).
		Int64("offset", maxID).
		Msg("outbox cycle complete")
	return nil
}

// dispatchAll publishes every event with bounded concurrency and returns the
// ids whose dispatch reported an error along with the first such error.
func (c *Coordinator) dispatchAll(ctx context.Context, events []models.OutboxEvent) ([]int64, error) {
	var (
		mu       sync.Mutex
		failed   []int64
		firstErr error
	)

	g, gctx := errgroup.WithContext(ctx)
	if c.batchSize > 0 {
		g.SetLimit(c.batchSize)
	}
	for _, event := range events {
		g.Go(func() error {
			if err := c.dispatcher.Dispatch(gctx, event); err != nil {
				mu.Lock()
				failed = append(failed, event.ID)
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return failed, firstErr
}
