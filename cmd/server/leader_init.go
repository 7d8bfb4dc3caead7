// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/outboxpublisher/internal/config"
	"github.com/tomtom215/outboxpublisher/internal/leader"
	"github.com/tomtom215/outboxpublisher/internal/logging"
)

// leadership is the elector the pipelines poll plus, when election is on,
// the coordinator the supervisor runs.
type leadership struct {
	elector     leader.Elector
	coordinator *leader.Coordinator
	close       func() error
}

// Close releases the lock store.
func (l *leadership) Close() error {
	if l.close == nil {
		return nil
	}
	return l.close()
}

func newLeadership(ctx context.Context, cfg *config.Config, b *brokerComponents) (*leadership, error) {
	if !cfg.Leadership.Enabled {
		logging.Warn().Msg("Leadership disabled, this instance always publishes")
		return &leadership{elector: leader.AlwaysLeader{}}, nil
	}

	l := &leadership{}
	var lockStore leader.LockStore
	switch cfg.Lock.Backend {
	case "memory":
		lockStore = leader.NewMemoryLockStore()
	case "badger":
		s, err := leader.OpenBadgerLockStore(cfg.Lock.BadgerDir)
		if err != nil {
			return nil, fmt.Errorf("open badger lock store: %w", err)
		}
		lockStore, l.close = s, s.Close
	case "nats":
		js, err := b.publisher.JetStream()
		if err != nil {
			return nil, fmt.Errorf("jetstream for lock store: %w", err)
		}
		s, err := leader.NewKVLockStore(ctx, js, cfg.Lock.KVBucket, cfg.Leadership.Lifetime)
		if err != nil {
			return nil, fmt.Errorf("open NATS KV lock store: %w", err)
		}
		lockStore = s
	default:
		return nil, fmt.Errorf("unknown lock backend %q", cfg.Lock.Backend)
	}

	token := leader.ResolveToken(cfg.Leadership.Token)
	l.coordinator = leader.NewCoordinator(
		leader.NewLock(lockStore, cfg.Leadership.Resource, token),
		leaderConfig(cfg.Leadership),
	)
	l.elector = l.coordinator
	logging.Info().
		Str("backend", cfg.Lock.Backend).
		Str("resource", cfg.Leadership.Resource).
		Str("token", token).
		Msg("Leader election enabled")
	return l, nil
}

func leaderConfig(cfg config.LeadershipConfig) leader.Config {
	lc := leader.DefaultConfig()
	lc.Resource = cfg.Resource
	lc.RaceInterval = cfg.RaceInterval
	lc.CheckInterval = cfg.CheckInterval
	lc.Lifetime = cfg.Lifetime
	return lc
}
