// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package leader

import (
	"context"
	"errors"
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/outboxpublisher/internal/broker"
)

// exerciseLockStore checks the lease contract shared by every store.
func exerciseLockStore(t *testing.T, store LockStore) {
	t.Helper()
	ctx := context.Background()
	ttl := 30 * time.Second

	if ok, err := store.Take(ctx, "res", "a", ttl); err != nil || !ok {
		t.Fatalf("a Take = %v, %v; want true", ok, err)
	}
	if ok, err := store.Take(ctx, "res", "b", ttl); err != nil || ok {
		t.Fatalf("b Take = %v, %v; want false while a holds", ok, err)
	}
	if ok, err := store.Take(ctx, "res", "a", ttl); err != nil || !ok {
		t.Fatalf("a re-Take = %v, %v; want true", ok, err)
	}
	if ok, err := store.Extend(ctx, "res", "b", ttl); err != nil || ok {
		t.Fatalf("b Extend = %v, %v; want false", ok, err)
	}
	if ok, err := store.Extend(ctx, "res", "a", ttl); err != nil || !ok {
		t.Fatalf("a Extend = %v, %v; want true", ok, err)
	}
	if ok, err := store.Release(ctx, "res", "b"); err != nil || ok {
		t.Fatalf("b Release = %v, %v; want false", ok, err)
	}
	if ok, err := store.Release(ctx, "res", "a"); err != nil || !ok {
		t.Fatalf("a Release = %v, %v; want true", ok, err)
	}
	if ok, err := store.Extend(ctx, "res", "a", ttl); err != nil || ok {
		t.Fatalf("Extend after release = %v, %v; want false", ok, err)
	}
	if ok, err := store.Take(ctx, "res", "b", ttl); err != nil || !ok {
		t.Fatalf("b Take after release = %v, %v; want true", ok, err)
	}
	if ok, err := store.Take(ctx, "other", "a", ttl); err != nil || !ok {
		t.Fatalf("Take of an unrelated resource = %v, %v; want true", ok, err)
	}
}

func TestMemoryLockStore(t *testing.T) {
	exerciseLockStore(t, NewMemoryLockStore())
}

func TestMemoryLockStoreExpiry(t *testing.T) {
	store := NewMemoryLockStore()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	if ok, _ := store.Take(ctx, "res", "a", 10*time.Second); !ok {
		t.Fatal("a should take the lock")
	}
	now = now.Add(9 * time.Second)
	if ok, _ := store.Take(ctx, "res", "b", 10*time.Second); ok {
		t.Fatal("lease still valid")
	}
	now = now.Add(2 * time.Second)
	if ok, _ := store.Extend(ctx, "res", "a", 10*time.Second); ok {
		t.Fatal("expired lease must not be extended")
	}
	if ok, _ := store.Take(ctx, "res", "b", 10*time.Second); !ok {
		t.Fatal("b should take the expired lock")
	}
}

func TestBadgerLockStore(t *testing.T) {
	store, err := OpenBadgerLockStore("")
	if err != nil {
		t.Fatalf("OpenBadgerLockStore: %v", err)
	}
	defer store.Close()
	exerciseLockStore(t, store)
}

func TestBadgerLockStoreClosed(t *testing.T) {
	store, err := OpenBadgerLockStore("")
	if err != nil {
		t.Fatalf("OpenBadgerLockStore: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	_, err = store.Take(context.Background(), "res", "a", time.Second)
	if !errors.Is(err, ErrLockStoreClosed) {
		t.Errorf("err = %v, want ErrLockStoreClosed", err)
	}
}

func newTestKV(t *testing.T, bucket string) *KVLockStore {
	t.Helper()
	srv, err := broker.NewEmbeddedServer(broker.ServerConfig{
		Host:     "127.0.0.1",
		Port:     -1,
		StoreDir: t.TempDir(),
		NoLog:    true,
	})
	if err != nil {
		t.Fatalf("embedded server: %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	nc, err := natsgo.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(nc.Close)

	js, err := jetstream.New(nc)
	if err != nil {
		t.Fatalf("jetstream: %v", err)
	}
	store, err := NewKVLockStore(context.Background(), js, bucket, time.Minute)
	if err != nil {
		t.Fatalf("NewKVLockStore: %v", err)
	}
	return store
}

func TestKVLockStore(t *testing.T) {
	exerciseLockStore(t, newTestKV(t, "locks"))
}

type failingStore struct{ err error }

func (f failingStore) Take(context.Context, string, string, time.Duration) (bool, error) {
	return true, f.err
}

func (f failingStore) Extend(context.Context, string, string, time.Duration) (bool, error) {
	return true, f.err
}

func (f failingStore) Release(context.Context, string, string) (bool, error) {
	return true, f.err
}

func TestLockFailsClosed(t *testing.T) {
	lock := NewLock(failingStore{err: errors.New("store down")}, "res", "a")
	ctx := context.Background()
	if lock.Take(ctx, time.Second) {
		t.Error("Take must report false on store error")
	}
	if lock.Extend(ctx, time.Second) {
		t.Error("Extend must report false on store error")
	}
	if lock.Release(ctx) {
		t.Error("Release must report false on store error")
	}
}
