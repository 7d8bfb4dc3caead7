// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package outbox

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// FindMissing returns the ids absent from events between offset+1 and the
// highest id, ascending. events need not be sorted.
func FindMissing(events []models.OutboxEvent, offset int64) []int64 {
	if len(events) == 0 {
		return nil
	}

	ids := make([]int64, len(events))
	for i, e := range events {
		ids[i] = e.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var missing []int64
	for id := offset + 1; id < ids[0]; id++ {
		missing = append(missing, id)
	}
	for i := 1; i < len(ids); i++ {
		for id := ids[i-1] + 1; id < ids[i]; id++ {
			missing = append(missing, id)
		}
	}
	return missing
}

// GapDetector records missing ids of a batch in the backlog.
type GapDetector struct {
	missing store.MissingEventStore
	now     func() time.Time
}

// NewGapDetector returns a detector writing to missing.
func NewGapDetector(missing store.MissingEventStore) *GapDetector {
	return &GapDetector{missing: missing, now: time.Now}
}

// Detect inserts one backlog record per missing id and returns the ids. An
// empty batch or a batch without an offset detects nothing.
func (g *GapDetector) Detect(ctx context.Context, batch models.OutboxEventsBatch) ([]int64, error) {
	if batch.IsEmpty() || batch.LatestOffset == nil {
		return nil, nil
	}

	ids := FindMissing(batch.Events, *batch.LatestOffset)
	if len(ids) == 0 {
		return nil, nil
	}

	now := g.now()
	for _, id := range ids {
		if err := g.missing.Insert(ctx, models.NewMissingEvent(id, now)); err != nil {
			return nil, fmt.Errorf("record gap %d: %w", id, err)
		}
	}

	logging.Ctx(ctx).Info().
		Int64("offset", *batch.LatestOffset).
		Int("count", len(ids)).
		Ints64("ids", ids).
		Msg("missing outbox ids detected")
	return ids, nil
}
