// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package leader

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/metrics"
)

// ErrLockStoreClosed is returned by stores used after Close.
var ErrLockStoreClosed = errors.New("leader: lock store closed")

// LockStore is a token-based lease. Take succeeds when the resource is free
// or already held by token. Extend and Release succeed only for the holder.
type LockStore interface {
	Take(ctx context.Context, resource, token string, ttl time.Duration) (bool, error)
	Extend(ctx context.Context, resource, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, resource, token string) (bool, error)
}

// Lock binds a store to one resource and token.
type Lock struct {
	store    LockStore
	resource string
	token    string
	logger   zerolog.Logger
}

// NewLock returns a Lock for resource held under token.
func NewLock(store LockStore, resource, token string) *Lock {
	return &Lock{
		store:    store,
		resource: resource,
		token:    token,
		logger:   logging.WithComponent("leader").With().Str("resource", resource).Str("token", token).Logger(),
	}
}

// Token returns the holder token.
func (l *Lock) Token() string { return l.token }

// Take tries to acquire the lock. Store errors report false.
func (l *Lock) Take(ctx context.Context, ttl time.Duration) bool {
	ok, err := l.store.Take(ctx, l.resource, l.token, ttl)
	return l.result("take", ok, err)
}

// Extend renews a held lock. Store errors report false.
func (l *Lock) Extend(ctx context.Context, ttl time.Duration) bool {
	ok, err := l.store.Extend(ctx, l.resource, l.token, ttl)
	return l.result("extend", ok, err)
}

// Release gives the lock up if held. Store errors report false.
func (l *Lock) Release(ctx context.Context) bool {
	ok, err := l.store.Release(ctx, l.resource, l.token)
	return l.result("release", ok, err)
}

func (l *Lock) result(op string, ok bool, err error) bool {
	metrics.RecordLockOperation(op, ok, err)
	if err != nil {
		l.logger.Error().Err(err).Str("operation", op).Msg("lock store operation failed")
		return false
	}
	return ok
}

// ResolveToken picks the holder token: the configured value, then the
// HOSTNAME variable, then the OS hostname, then a random uuid.
func ResolveToken(configured string) string {
	if t := strings.TrimSpace(configured); t != "" {
		return t
	}
	if h := strings.TrimSpace(os.Getenv("HOSTNAME")); h != "" {
		return h
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return uuid.NewString()
}
