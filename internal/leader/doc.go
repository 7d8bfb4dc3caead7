// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

/*
Package leader elects a single active publisher among replicas.

Instances race for a named lock with a time-to-live. The holder extends it on
every race interval; everyone else keeps trying to take it. Pipelines gate
each cycle on Coordinator.PollLeadership, which returns immediately for the
leader and sleeps the check interval for followers.

Lock stores:

  - MemoryLockStore: in-process, for tests and single-node runs
  - BadgerLockStore: entries with a TTL in a local badger database, for
    replicas sharing one host volume
  - KVLockStore: a NATS JetStream key-value bucket whose TTL equals the lock
    lifetime, for distributed deployments

Lock wraps any store and fails closed: a store error is logged and reported
as not holding the lock. AlwaysLeader is used when leadership is disabled.
*/
package leader
