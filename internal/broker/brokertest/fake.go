// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

// Package brokertest provides an in-memory broker.Broker for tests.
package brokertest

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/outboxpublisher/internal/broker"
)

// Fake records published messages. Errors can be scripted per event id or
// for every publish.
type Fake struct {
	mu        sync.Mutex
	published []broker.Message
	attempts  map[int64]int
	failByID  map[int64]error
	failAll   error
}

var _ broker.Broker = (*Fake)(nil)

// New returns a Fake that accepts everything.
func New() *Fake {
	return &Fake{
		attempts: make(map[int64]int),
		failByID: make(map[int64]error),
	}
}

// FailID makes publishes of event id return err. A nil err clears it.
func (f *Fake) FailID(id int64, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.failByID, id)
		return
	}
	f.failByID[id] = err
}

// FailAll makes every publish return err. A nil err clears it.
func (f *Fake) FailAll(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failAll = err
}

// Publish implements broker.Broker.
func (f *Fake) Publish(_ context.Context, msg broker.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts[msg.ID]++
	if f.failAll != nil {
		return f.failAll
	}
	if err, ok := f.failByID[msg.ID]; ok {
		return err
	}
	f.published = append(f.published, msg)
	return nil
}

// Published returns the delivered messages in publish order.
func (f *Fake) Published() []broker.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]broker.Message(nil), f.published...)
}

// PublishedIDs returns the delivered event ids sorted ascending.
func (f *Fake) PublishedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, len(f.published))
	for i, m := range f.published {
		ids[i] = m.ID
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Attempts returns how often event id was published, failed or not.
func (f *Fake) Attempts(id int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[id]
}
