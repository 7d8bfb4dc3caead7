// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

/*
Package models defines the records exchanged between the outbox stores, the
publishing pipelines and the broker.

Record lifecycle:

  - OutboxEvent: written by producing services inside their own transactions.
    Read-only for the publisher; its ID doubles as the offset cursor.
  - MissingEvent: created when an ID is absent from a fetched window or when a
    first publish attempt fails. Mutated by the recovery pipeline until it is
    either deleted (republished) or escalated.
  - ExceededEvent: terminal audit record for events that could not be
    recovered within the retry limits. Never mutated after insertion.
  - MappedMissingEvent: pairing of a MissingEvent with the OutboxEvent that
    has since become visible. Exists only within one recovery cycle.

Thread Safety:

Models are plain values. Pipelines copy them into goroutines rather than
sharing pointers across a fan-out.
*/
package models
