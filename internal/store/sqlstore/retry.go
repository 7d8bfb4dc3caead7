// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package sqlstore

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/metrics"
)

type retryPolicy struct {
	attempts int
	interval time.Duration
}

// do runs a write with a constant backoff. Context cancellation stops the
// retries immediately.
func (p retryPolicy) do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		err := fn(ctx)
		if err != nil && ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	var b backoff.BackOff = backoff.NewConstantBackOff(p.interval)
	b = backoff.WithMaxRetries(b, uint64(p.attempts-1))
	b = backoff.WithContext(b, ctx)

	return backoff.RetryNotify(operation, b, func(err error, wait time.Duration) {
		metrics.StoreWriteRetries.WithLabelValues(op).Inc()
		logging.Warn().
			Err(err).
			Str("operation", op).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("Datastore write failed, retrying")
	})
}
