// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

// Package memory provides an in-process implementation of every store
// contract. It backs datastore.type=memory and the pipeline tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// Store holds outbox, missing, exceeded and offset state in maps.
type Store struct {
	mu       sync.Mutex
	outbox   map[int64]models.OutboxEvent
	missing  map[int64]models.MissingEvent
	exceeded []models.ExceededEvent
	offset   *int64
	nextID   int64
	failures map[string]error
	calls    map[string]int
}

// New creates an empty store with no offset row.
func New() *Store {
	return &Store{
		outbox:   make(map[int64]models.OutboxEvent),
		missing:  make(map[int64]models.MissingEvent),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Stores returns the store bundle backed by s.
func (s *Store) Stores() store.Stores {
	return store.Stores{
		Offsets:  s,
		Outbox:   OutboxView{s},
		Missing:  MissingView{s},
		Exceeded: ExceededView{s},
		Writer:   OutboxView{s},
		Pinger:   s,
		Close:    func() error { return nil },
	}
}

// FailOn makes every subsequent call of op return err wrapped as a
// persistence error. A nil err clears the failure.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns how many times op was invoked.
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// enter must be called with mu held.
func (s *Store) enter(op string) error {
	s.calls[op]++
	if err, ok := s.failures[op]; ok {
		return store.Wrap(op, "memory", err)
	}
	return nil
}

// Ping implements store.Pinger.
func (s *Store) Ping(context.Context) error {
	return nil
}

// GetLatestOffset implements store.OffsetStore.
func (s *Store) GetLatestOffset(context.Context) (*int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(store.OpGetOffset); err != nil {
		return nil, err
	}
	if s.offset == nil {
		return nil, nil
	}
	v := *s.offset
	return &v, nil
}

// SetLatestOffset implements store.OffsetStore.
func (s *Store) SetLatestOffset(_ context.Context, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter(store.OpSetOffset); err != nil {
		return err
	}
	s.offset = &offset
	return nil
}

// Seed inserts outbox rows with explicit ids, as committed writer
// transactions would leave them.
func (s *Store) Seed(events ...models.OutboxEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.outbox[e.ID] = e
		if e.ID > s.nextID {
			s.nextID = e.ID
		}
	}
}

// SeedMissing inserts backlog records directly.
func (s *Store) SeedMissing(events ...models.MissingEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range events {
		s.missing[e.ID] = e
	}
}

// Offset returns the stored offset, or nil.
func (s *Store) Offset() *int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offset == nil {
		return nil
	}
	v := *s.offset
	return &v
}

// Missing returns a snapshot of the backlog ordered by id.
func (s *Store) Missing() []models.MissingEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.MissingEvent, 0, len(s.missing))
	for _, e := range s.missing {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Exceeded returns a snapshot of the terminal records in insertion order.
func (s *Store) Exceeded() []models.ExceededEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.ExceededEvent(nil), s.exceeded...)
}

// OutboxView exposes the outbox contract of a Store.
type OutboxView struct{ s *Store }

// GetEventsByID implements store.OutboxEventStore.
func (v OutboxView) GetEventsByID(_ context.Context, ids []int64) ([]models.OutboxEvent, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.enter(store.OpGetEventsByID); err != nil {
		return nil, err
	}
	out := make([]models.OutboxEvent, 0, len(ids))
	for _, id := range ids {
		if e, ok := v.s.outbox[id]; ok {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetNewestEventID implements store.OutboxEventStore.
func (v OutboxView) GetNewestEventID(_ context.Context, after int64) (int64, bool, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.enter(store.OpGetNewestEventID); err != nil {
		return 0, false, err
	}
	var (
		found bool
		next  int64
	)
	for id := range v.s.outbox {
		if id > after && (!found || id < next) {
			next, found = id, true
		}
	}
	return next, found, nil
}

// GetEventsFrom implements store.OutboxEventStore.
func (v OutboxView) GetEventsFrom(_ context.Context, newestID int64, limit int) ([]models.OutboxEvent, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.enter(store.OpGetEventsFrom); err != nil {
		return nil, err
	}
	out := make([]models.OutboxEvent, 0)
	for id, e := range v.s.outbox {
		if id >= newestID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Append implements store.OutboxWriter, assigning ids sequentially.
func (v OutboxView) Append(_ context.Context, events []models.OutboxEvent) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.enter(store.OpAppendOutbox); err != nil {
		return err
	}
	for _, e := range events {
		v.s.nextID++
		e.ID = v.s.nextID
		v.s.outbox[e.ID] = e
	}
	return nil
}

// MissingView exposes the missing event contract of a Store.
type MissingView struct{ s *Store }

// Insert implements store.MissingEventStore.
func (v MissingView) Insert(_ context.Context, event models.MissingEvent) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.enter(store.OpInsertMissing); err != nil {
		return err
	}
	if _, ok := v.s.missing[event.ID]; ok {
		return nil
	}
	v.s.missing[event.ID] = event
	return nil
}

// UpdateRetryAndException implements store.MissingEventStore.
func (v MissingView) UpdateRetryAndException(_ context.Context, event models.MissingEvent) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.enter(store.OpUpdateMissing); err != nil {
		return err
	}
	current, ok := v.s.missing[event.ID]
	if !ok {
		return nil
	}
	current.RetryCount = event.RetryCount
	current.ExceptionThrown = event.ExceptionThrown
	v.s.missing[event.ID] = current
	return nil
}

// GetBatch implements store.MissingEventStore.
func (v MissingView) GetBatch(_ context.Context, limit int) ([]models.MissingEvent, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.enter(store.OpGetMissingBatch); err != nil {
		return nil, err
	}
	out := make([]models.MissingEvent, 0, len(v.s.missing))
	for _, e := range v.s.missing {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// IncrementRetryCount implements store.MissingEventStore.
func (v MissingView) IncrementRetryCount(_ context.Context, ids []int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.enter(store.OpIncrementRetry); err != nil {
		return err
	}
	for _, id := range ids {
		if e, ok := v.s.missing[id]; ok {
			e.RetryCount++
			v.s.missing[id] = e
		}
	}
	return nil
}

// DeleteByIDs implements store.MissingEventStore.
func (v MissingView) DeleteByIDs(_ context.Context, ids []int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.enter(store.OpDeleteMissing); err != nil {
		return err
	}
	for _, id := range ids {
		delete(v.s.missing, id)
	}
	return nil
}

// ExceededView exposes the exceeded event contract of a Store.
type ExceededView struct{ s *Store }

// Insert implements store.ExceededEventStore.
func (v ExceededView) Insert(_ context.Context, event models.ExceededEvent) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	if err := v.s.enter(store.OpInsertExceeded); err != nil {
		return err
	}
	v.s.exceeded = append(v.s.exceeded, event)
	return nil
}

var (
	_ store.OffsetStore        = (*Store)(nil)
	_ store.OutboxEventStore   = OutboxView{}
	_ store.OutboxWriter       = OutboxView{}
	_ store.MissingEventStore  = MissingView{}
	_ store.ExceededEventStore = ExceededView{}
)
