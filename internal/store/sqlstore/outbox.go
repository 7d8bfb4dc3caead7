// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

type outboxRepo struct{ s *Store }

// GetEventsByID implements store.OutboxEventStore.
func (r outboxRepo) GetEventsByID(ctx context.Context, ids []int64) (_ []models.OutboxEvent, err error) {
	if len(ids) == 0 {
		return nil, nil
	}

	start := time.Now()
	defer func() { err = observe(store.OpGetEventsByID, r.s.tables.Outbox, start, err) }()

	events := make([]models.OutboxEvent, 0, len(ids))
	for _, chunk := range chunkIDs(ids, maxInListSize) {
		batch, err := r.query(ctx, r.s.q.getEventsByID(len(chunk)), idArgs(chunk)...)
		if err != nil {
			return nil, err
		}
		events = append(events, batch...)
	}
	return events, nil
}

// GetNewestEventID implements store.OutboxEventStore.
func (r outboxRepo) GetNewestEventID(ctx context.Context, after int64) (_ int64, _ bool, err error) {
	start := time.Now()
	defer func() { err = observe(store.OpGetNewestEventID, r.s.tables.Outbox, start, err) }()

	var id sqlInt
	err = r.s.db.QueryRowContext(ctx, r.s.q.getNewestID, after).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int64(id), true, nil
}

// GetEventsFrom implements store.OutboxEventStore.
func (r outboxRepo) GetEventsFrom(ctx context.Context, newestID int64, limit int) (_ []models.OutboxEvent, err error) {
	start := time.Now()
	defer func() { err = observe(store.OpGetEventsFrom, r.s.tables.Outbox, start, err) }()

	return r.query(ctx, r.s.q.getEventsFrom(limit), newestID)
}

// Append implements store.OutboxWriter.
func (r outboxRepo) Append(ctx context.Context, events []models.OutboxEvent) (err error) {
	start := time.Now()
	defer func() { err = observe(store.OpAppendOutbox, r.s.tables.Outbox, start, err) }()

	for _, e := range events {
		e := e
		err := r.s.retry.do(ctx, store.OpAppendOutbox, func(ctx context.Context) error {
			_, err := r.s.db.ExecContext(ctx, r.s.q.appendOutbox, e.Key, e.Value, e.Topic, nullableString(e.Header))
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (r outboxRepo) query(ctx context.Context, query string, args ...any) ([]models.OutboxEvent, error) {
	rows, err := r.s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.OutboxEvent
	for rows.Next() {
		var (
			id                      sqlInt
			key, value, topic, head sql.NullString
		)
		if err := rows.Scan(&id, &key, &value, &topic, &head); err != nil {
			return nil, err
		}
		events = append(events, models.OutboxEvent{
			ID:     int64(id),
			Key:    key.String,
			Value:  value.String,
			Topic:  topic.String,
			Header: head.String,
		})
	}
	return events, rows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
