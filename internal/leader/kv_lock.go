// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package leader

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

// KVLockStore keeps leases in a NATS JetStream key-value bucket. The bucket
// TTL is the lease lifetime; the ttl arguments are ignored. Every write uses
// the last seen revision so concurrent writers cannot both win.
type KVLockStore struct {
	kv jetstream.KeyValue
}

var _ LockStore = (*KVLockStore)(nil)

// NewKVLockStore creates or updates bucket with the given lifetime.
func NewKVLockStore(ctx context.Context, js jetstream.JetStream, bucket string, lifetime time.Duration) (*KVLockStore, error) {
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "outbox publisher leader locks",
		TTL:         lifetime,
		History:     1,
		Storage:     jetstream.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create lock bucket %s: %w", bucket, err)
	}
	return &KVLockStore{kv: kv}, nil
}

// Take implements LockStore.
func (s *KVLockStore) Take(ctx context.Context, resource, token string, _ time.Duration) (bool, error) {
	_, err := s.kv.Create(ctx, resource, []byte(token))
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, jetstream.ErrKeyExists) {
		return false, fmt.Errorf("kv lock take %s: %w", resource, err)
	}
	// Someone holds it; re-taking our own lease renews it.
	return s.Extend(ctx, resource, token, 0)
}

// Extend implements LockStore.
func (s *KVLockStore) Extend(ctx context.Context, resource, token string, _ time.Duration) (bool, error) {
	entry, ok, err := s.holder(ctx, resource)
	if err != nil || !ok || string(entry.Value()) != token {
		return false, err
	}
	if _, err := s.kv.Update(ctx, resource, []byte(token), entry.Revision()); err != nil {
		if isRevisionConflict(err) {
			return false, nil
		}
		return false, fmt.Errorf("kv lock extend %s: %w", resource, err)
	}
	return true, nil
}

// Release implements LockStore.
func (s *KVLockStore) Release(ctx context.Context, resource, token string) (bool, error) {
	entry, ok, err := s.holder(ctx, resource)
	if err != nil || !ok || string(entry.Value()) != token {
		return false, err
	}
	if err := s.kv.Delete(ctx, resource, jetstream.LastRevision(entry.Revision())); err != nil {
		if isRevisionConflict(err) {
			return false, nil
		}
		return false, fmt.Errorf("kv lock release %s: %w", resource, err)
	}
	return true, nil
}

func (s *KVLockStore) holder(ctx context.Context, resource string) (jetstream.KeyValueEntry, bool, error) {
	entry, err := s.kv.Get(ctx, resource)
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv lock get %s: %w", resource, err)
	}
	return entry, true, nil
}

func isRevisionConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	var apiErr *jetstream.APIError
	return errors.As(err, &apiErr) && apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
}
