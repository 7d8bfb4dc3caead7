// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package recovery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/pipeline/wait"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// PipelineName labels the recovery pipeline in logs and metrics.
const PipelineName = "recovery"

// Config holds recovery pipeline settings.
type Config struct {
	BatchSize                  int
	WaitDuration               time.Duration
	MissingEventsMaxRetryCount int
	BrokerErrorsMaxRetryCount  int
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		BatchSize:                  500,
		WaitDuration:               20 * time.Second,
		MissingEventsMaxRetryCount: 2,
		BrokerErrorsMaxRetryCount:  5,
	}
}

// Dispatcher republishes a matched backlog record.
type Dispatcher interface {
	DispatchMissing(ctx context.Context, mapped models.MappedMissingEvent) (models.MappedMissingEvent, error)
}

// Coordinator runs recovery cycles.
type Coordinator struct {
	queue      *Queue
	outbox     store.OutboxEventStore
	cleaner    *Cleaner
	dispatcher Dispatcher
	cfg        Config
	sleep      func(ctx context.Context, d time.Duration)
}

// NewCoordinator wires a coordinator over stores.
func NewCoordinator(stores store.Stores, dispatcher Dispatcher, cfg Config) *Coordinator {
	return &Coordinator{
		queue:      NewQueue(NewSource(stores.Missing, cfg.BatchSize), cfg.WaitDuration),
		outbox:     stores.Outbox,
		cleaner:    NewCleaner(stores.Missing, stores.Exceeded, cfg.MissingEventsMaxRetryCount, cfg.BrokerErrorsMaxRetryCount),
		dispatcher: dispatcher,
		cfg:        cfg,
		sleep:      wait.Sleep,
	}
}

// dispatchResult separates delivered-or-updated pairs from ones whose
// bookkeeping write failed.
type dispatchResult struct {
	ok       []models.MappedMissingEvent
	faulted  []models.MappedMissingEvent
	firstErr error
}

// RunCycle processes one backlog batch.
func (c *Coordinator) RunCycle(ctx context.Context) error {
	batch, err := c.queue.Dequeue(ctx)
	if err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}

	retryable := c.retryable(batch)

	var found []models.OutboxEvent
	if len(retryable) > 0 {
		found, err = c.outbox.GetEventsByID(ctx, models.MissingEventIDs(retryable))
		if err != nil {
			return fmt.Errorf("fetch outbox rows for missing events: %w", err)
		}
	}

	bumped, err := c.cleaner.HandleNonMatched(ctx, found, retryable)
	if err != nil {
		return err
	}
	batch = bumpRetryCounts(batch, bumped)

	pairs, unmatched := join(batch, found)

	work := context.WithoutCancel(ctx)
	res := c.dispatchAll(work, pairs)

	faulted := make(map[int64]struct{}, len(res.faulted))
	for _, f := range res.faulted {
		faulted[f.MissingEvent.ID] = struct{}{}
	}
	matched := make([]models.MissingEvent, 0, len(pairs))
	for _, p := range pairs {
		if _, bad := faulted[p.MissingEvent.ID]; !bad {
			matched = append(matched, p.MissingEvent)
		}
	}

	if err := c.cleaner.CleanMatched(work, matched, res.ok); err != nil {
		return err
	}
	if err := c.cleaner.CleanUnmatched(work, unmatched); err != nil {
		return err
	}

	log := logging.Ctx(ctx)
	log.Debug().
		Int("batch", len(batch)).
		Int("retryable", len(retryable)).
		Int("matched", len(pairs)).
		Int("faulted", len(res.faulted)).
		Msg("recovery cycle complete")

	if len(res.faulted) > 0 {
		ids := make([]int64, len(res.faulted))
		for i, f := range res.faulted {
			ids[i] = f.MissingEvent.ID
		}
		log.Error().Ints64("ids", ids).Msg("missing event retry state could not be saved")
		return fmt.Errorf("%d republished events not recorded: %w", len(ids), res.firstErr)
	}

	if len(pairs) == 0 {
		c.sleep(ctx, c.cfg.WaitDuration)
	}
	return nil
}

func (c *Coordinator) retryable(batch []models.MissingEvent) []models.MissingEvent {
	var out []models.MissingEvent
	for _, m := range batch {
		if m.IsRetryCountLessThan(c.cfg.MissingEventsMaxRetryCount) || m.ExceptionThrown {
			out = append(out, m)
		}
	}
	return out
}

func (c *Coordinator) dispatchAll(ctx context.Context, pairs []models.MappedMissingEvent) dispatchResult {
	var (
		mu  sync.Mutex
		res dispatchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	if c.cfg.BatchSize > 0 {
		g.SetLimit(c.cfg.BatchSize)
	}
	for _, pair := range pairs {
		g.Go(func() error {
			out, err := c.dispatcher.DispatchMissing(gctx, pair)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.faulted = append(res.faulted, out)
				if res.firstErr == nil {
					res.firstErr = err
				}
				return nil
			}
			res.ok = append(res.ok, out)
			return nil
		})
	}
	_ = g.Wait()
	return res
}

// bumpRetryCounts mirrors a stored retry increment on the in-memory batch.
func bumpRetryCounts(batch []models.MissingEvent, ids []int64) []models.MissingEvent {
	if len(ids) == 0 {
		return batch
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	out := make([]models.MissingEvent, len(batch))
	for i, m := range batch {
		if _, ok := set[m.ID]; ok {
			m.RetryCount++
		}
		out[i] = m
	}
	return out
}

// join pairs backlog records with their outbox rows. Records without a row
// are returned separately.
func join(batch []models.MissingEvent, found []models.OutboxEvent) ([]models.MappedMissingEvent, []models.MissingEvent) {
	rows := make(map[int64]models.OutboxEvent, len(found))
	for _, e := range found {
		rows[e.ID] = e
	}

	var (
		pairs     []models.MappedMissingEvent
		unmatched []models.MissingEvent
	)
	for _, m := range batch {
		if e, ok := rows[m.ID]; ok {
			pairs = append(pairs, models.MappedMissingEvent{MissingEvent: m, OutboxEvent: e})
			continue
		}
		unmatched = append(unmatched, m)
	}
	return pairs, unmatched
}
