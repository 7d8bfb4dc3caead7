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

type missingRepo struct{ s *Store }

// Insert implements store.MissingEventStore.
func (r missingRepo) Insert(ctx context.Context, event models.MissingEvent) (err error) {
	start := time.Now()
	defer func() { err = observe(store.OpInsertMissing, r.s.tables.Missing, start, err) }()

	return r.s.retry.do(ctx, store.OpInsertMissing, func(ctx context.Context) error {
		_, err := r.s.db.ExecContext(ctx, r.s.q.insertMissing,
			event.ID, utc(event.MissedDate), event.RetryCount, r.s.dialect.boolArg(event.ExceptionThrown))
		return err
	})
}

// UpdateRetryAndException implements store.MissingEventStore.
func (r missingRepo) UpdateRetryAndException(ctx context.Context, event models.MissingEvent) (err error) {
	start := time.Now()
	defer func() { err = observe(store.OpUpdateMissing, r.s.tables.Missing, start, err) }()

	return r.s.retry.do(ctx, store.OpUpdateMissing, func(ctx context.Context) error {
		_, err := r.s.db.ExecContext(ctx, r.s.q.updateMissing,
			event.RetryCount, r.s.dialect.boolArg(event.ExceptionThrown), event.ID)
		return err
	})
}

// GetBatch implements store.MissingEventStore.
func (r missingRepo) GetBatch(ctx context.Context, limit int) (_ []models.MissingEvent, err error) {
	start := time.Now()
	defer func() { err = observe(store.OpGetMissingBatch, r.s.tables.Missing, start, err) }()

	rows, err := r.s.db.QueryContext(ctx, r.s.q.getMissingBatch(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.MissingEvent
	for rows.Next() {
		var (
			id, retries sqlInt
			missed      time.Time
			thrown      sqlBool
		)
		if err := rows.Scan(&id, &missed, &retries, &thrown); err != nil {
			return nil, err
		}
		events = append(events, models.MissingEvent{
			ID:              int64(id),
			MissedDate:      missed,
			RetryCount:      int(retries),
			ExceptionThrown: bool(thrown),
		})
	}
	return events, rows.Err()
}

// IncrementRetryCount implements store.MissingEventStore.
func (r missingRepo) IncrementRetryCount(ctx context.Context, ids []int64) (err error) {
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { err = observe(store.OpIncrementRetry, r.s.tables.Missing, start, err) }()

	return r.execChunked(ctx, store.OpIncrementRetry, ids, r.s.q.incrementRetry)
}

// DeleteByIDs implements store.MissingEventStore.
func (r missingRepo) DeleteByIDs(ctx context.Context, ids []int64) (err error) {
	if len(ids) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { err = observe(store.OpDeleteMissing, r.s.tables.Missing, start, err) }()

	return r.execChunked(ctx, store.OpDeleteMissing, ids, r.s.q.deleteMissing)
}

func (r missingRepo) execChunked(ctx context.Context, op string, ids []int64, build func(n int) string) error {
	for _, chunk := range chunkIDs(ids, maxInListSize) {
		query := build(len(chunk))
		args := idArgs(chunk)
		err := r.s.retry.do(ctx, op, func(ctx context.Context) error {
			_, err := r.s.db.ExecContext(ctx, query, args...)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
