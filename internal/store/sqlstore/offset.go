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

	"github.com/tomtom215/outboxpublisher/internal/store"
)

type offsetRepo struct{ s *Store }

// GetLatestOffset implements store.OffsetStore.
func (r offsetRepo) GetLatestOffset(ctx context.Context) (_ *int64, err error) {
	start := time.Now()
	defer func() { err = observe(store.OpGetOffset, r.s.tables.Offset, start, err) }()

	var offset sqlInt
	err = r.s.db.QueryRowContext(ctx, r.s.q.getOffset).Scan(&offset)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v := int64(offset)
	return &v, nil
}

// SetLatestOffset implements store.OffsetStore.
func (r offsetRepo) SetLatestOffset(ctx context.Context, offset int64) (err error) {
	start := time.Now()
	defer func() { err = observe(store.OpSetOffset, r.s.tables.Offset, start, err) }()

	return r.s.retry.do(ctx, store.OpSetOffset, func(ctx context.Context) error {
		_, err := r.s.db.ExecContext(ctx, r.s.q.setOffset, offset)
		return err
	})
}
