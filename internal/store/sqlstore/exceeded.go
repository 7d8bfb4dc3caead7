// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package sqlstore

import (
	"context"
	"time"

	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

type exceededRepo struct{ s *Store }

// Insert implements store.ExceededEventStore.
func (r exceededRepo) Insert(ctx context.Context, event models.ExceededEvent) (err error) {
	start := time.Now()
	defer func() { err = observe(store.OpInsertExceeded, r.s.tables.Exceeded, start, err) }()

	return r.s.retry.do(ctx, store.OpInsertExceeded, func(ctx context.Context) error {
		_, err := r.s.db.ExecContext(ctx, r.s.q.insertExceeded,
			event.ID,
			utc(event.MissedDate),
			event.RetryCount,
			utc(event.ExceededDate),
			r.s.dialect.boolArg(event.ExceptionThrown))
		return err
	})
}

var (
	_ store.OffsetStore        = offsetRepo{}
	_ store.OutboxEventStore   = outboxRepo{}
	_ store.OutboxWriter       = outboxRepo{}
	_ store.MissingEventStore  = missingRepo{}
	_ store.ExceededEventStore = exceededRepo{}
)
