// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package leader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const badgerKeyPrefix = "lock/"

// BadgerLockStore keeps leases as badger entries with a TTL. Badger expires
// entries with second granularity.
type BadgerLockStore struct {
	db *badger.DB

	mu     sync.Mutex
	closed bool
}

var _ LockStore = (*BadgerLockStore)(nil)

// OpenBadgerLockStore opens a badger database at dir. An empty dir opens an
// in-memory database.
func OpenBadgerLockStore(dir string) (*BadgerLockStore, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger lock store: %w", err)
	}
	return &BadgerLockStore{db: db}, nil
}

// Take implements LockStore.
func (s *BadgerLockStore) Take(_ context.Context, resource, token string, ttl time.Duration) (bool, error) {
	return s.update(resource, func(txn *badger.Txn, key []byte, current string, found bool) (bool, error) {
		if found && current != token {
			return false, nil
		}
		return true, txn.SetEntry(badger.NewEntry(key, []byte(token)).WithTTL(ttl))
	})
}

// Extend implements LockStore.
func (s *BadgerLockStore) Extend(_ context.Context, resource, token string, ttl time.Duration) (bool, error) {
	return s.update(resource, func(txn *badger.Txn, key []byte, current string, found bool) (bool, error) {
		if !found || current != token {
			return false, nil
		}
		return true, txn.SetEntry(badger.NewEntry(key, []byte(token)).WithTTL(ttl))
	})
}

// Release implements LockStore.
func (s *BadgerLockStore) Release(_ context.Context, resource, token string) (bool, error) {
	return s.update(resource, func(txn *badger.Txn, key []byte, current string, found bool) (bool, error) {
		if !found || current != token {
			return false, nil
		}
		return true, txn.Delete(key)
	})
}

type badgerLockFn func(txn *badger.Txn, key []byte, current string, found bool) (bool, error)

// update runs fn in a read-write transaction. A commit conflict means another
// holder won the race and reports false.
func (s *BadgerLockStore) update(resource string, fn badgerLockFn) (bool, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return false, ErrLockStoreClosed
	}

	key := []byte(badgerKeyPrefix + resource)
	var ok bool
	err := s.db.Update(func(txn *badger.Txn) error {
		current, found, err := readToken(txn, key)
		if err != nil {
			return err
		}
		ok, err = fn(txn, key, current, found)
		return err
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("badger lock %s: %w", resource, err)
	}
	return ok, nil
}

func readToken(txn *badger.Txn, key []byte) (string, bool, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", false, err
	}
	return string(val), true, nil
}

// Close closes the database.
func (s *BadgerLockStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
