// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package leader

import (
	"context"
	"sync"
	"time"
)

type memoryLease struct {
	token   string
	expires time.Time
}

// MemoryLockStore keeps leases in process memory.
type MemoryLockStore struct {
	mu     sync.Mutex
	leases map[string]memoryLease
	now    func() time.Time
}

var _ LockStore = (*MemoryLockStore)(nil)

// NewMemoryLockStore returns an empty store.
func NewMemoryLockStore() *MemoryLockStore {
	return &MemoryLockStore{leases: make(map[string]memoryLease), now: time.Now}
}

func (s *MemoryLockStore) holder(resource string) (memoryLease, bool) {
	l, ok := s.leases[resource]
	if !ok || !s.now().Before(l.expires) {
		return memoryLease{}, false
	}
	return l, true
}

// Take implements LockStore.
func (s *MemoryLockStore) Take(_ context.Context, resource, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.holder(resource); ok && l.token != token {
		return false, nil
	}
	s.leases[resource] = memoryLease{token: token, expires: s.now().Add(ttl)}
	return true, nil
}

// Extend implements LockStore.
func (s *MemoryLockStore) Extend(_ context.Context, resource, token string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.holder(resource)
	if !ok || l.token != token {
		return false, nil
	}
	s.leases[resource] = memoryLease{token: token, expires: s.now().Add(ttl)}
	return true, nil
}

// Release implements LockStore.
func (s *MemoryLockStore) Release(_ context.Context, resource, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.holder(resource)
	if !ok || l.token != token {
		return false, nil
	}
	delete(s.leases, resource)
	return true, nil
}
