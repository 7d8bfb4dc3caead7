// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package recovery

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/metrics"
	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// Escalation reasons used as metric labels.
const (
	ReasonBrokerRetries  = "broker_retries"
	ReasonMissingRetries = "missing_retries"
)

// Cleaner settles backlog records after a recovery cycle.
type Cleaner struct {
	missing    store.MissingEventStore
	exceeded   store.ExceededEventStore
	missingMax int
	brokerMax  int
	now        func() time.Time
}

// NewCleaner returns a Cleaner with the two retry limits.
func NewCleaner(missing store.MissingEventStore, exceeded store.ExceededEventStore, missingMax, brokerMax int) *Cleaner {
	return &Cleaner{
		missing:    missing,
		exceeded:   exceeded,
		missingMax: missingMax,
		brokerMax:  brokerMax,
		now:        time.Now,
	}
}

// HandleNonMatched increments the retry count of retryable records whose
// outbox row is still absent and returns their ids.
func (c *Cleaner) HandleNonMatched(ctx context.Context, found []models.OutboxEvent, retryable []models.MissingEvent) ([]int64, error) {
	present := make(map[int64]struct{}, len(found))
	for _, e := range found {
		present[e.ID] = struct{}{}
	}

	var absent []int64
	for _, m := range retryable {
		if _, ok := present[m.ID]; !ok {
			absent = append(absent, m.ID)
		}
	}
	if len(absent) == 0 {
		return nil, nil
	}

	if err := c.missing.IncrementRetryCount(ctx, absent); err != nil {
		return nil, fmt.Errorf("increment retry count: %w", err)
	}
	metrics.MissingEventsRetried.Add(float64(len(absent)))
	return absent, nil
}

// CleanMatched settles records whose outbox row was found. Delivered
// results are deleted. Updated results replace their records and the ones
// still failing at the broker retry limit are escalated.
func (c *Cleaner) CleanMatched(ctx context.Context, matched []models.MissingEvent, results []models.MappedMissingEvent) error {
	delivered := make(map[int64]struct{})
	updated := make(map[int64]models.MissingEvent, len(results))
	for _, r := range results {
		if !r.MissingEvent.ExceptionThrown {
			delivered[r.MissingEvent.ID] = struct{}{}
			continue
		}
		updated[r.MissingEvent.ID] = r.MissingEvent
	}

	if len(delivered) > 0 {
		ids := keys(delivered)
		if err := c.missing.DeleteByIDs(ctx, ids); err != nil {
			return fmt.Errorf("delete delivered missing events: %w", err)
		}
		metrics.MissingEventsRecovered.Add(float64(len(ids)))
		logging.Ctx(ctx).Info().Ints64("ids", ids).Msg("missing events published and removed from backlog")
	}

	var pending []models.MissingEvent
	for _, m := range matched {
		if _, ok := delivered[m.ID]; ok {
			continue
		}
		if u, ok := updated[m.ID]; ok {
			m = u
		}
		pending = append(pending, m)
	}
	return c.escalate(ctx, pending, c.brokerMax, ReasonBrokerRetries)
}

// CleanUnmatched escalates records without an outbox row that reached the
// missing retry limit.
func (c *Cleaner) CleanUnmatched(ctx context.Context, unmatched []models.MissingEvent) error {
	return c.escalate(ctx, unmatched, c.missingMax, ReasonMissingRetries)
}

func (c *Cleaner) escalate(ctx context.Context, events []models.MissingEvent, limit int, reason string) error {
	var over []models.MissingEvent
	for _, m := range events {
		if !m.IsRetryCountLessThan(limit) {
			over = append(over, m)
		}
	}
	if len(over) == 0 {
		return nil
	}

	now := c.now()
	for _, m := range over {
		if err := c.exceeded.Insert(ctx, m.ToExceededEvent(now)); err != nil {
			return fmt.Errorf("escalate missing event %d: %w", m.ID, err)
		}
	}

	ids := models.MissingEventIDs(over)
	if err := c.missing.DeleteByIDs(ctx, ids); err != nil {
		return fmt.Errorf("delete escalated missing events: %w", err)
	}
	metrics.MissingEventsEscalated.WithLabelValues(reason).Add(float64(len(ids)))
	logging.Ctx(ctx).Warn().
		Ints64("ids", ids).
		Int("retry_limit", limit).
		Str("reason", reason).
		Msg("missing events exceeded their retry limit, investigate writer transactions")
	return nil
}

func keys(set map[int64]struct{}) []int64 {
	ids := make([]int64, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
