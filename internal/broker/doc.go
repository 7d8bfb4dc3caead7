// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

/*
Package broker publishes outbox events to NATS JetStream.

The Publisher wraps a Watermill NATS publisher. Each outbox row becomes one
Watermill message whose UUID and Nats-Msg-Id header are "outbox-<id>", so
JetStream drops redeliveries of the same row inside the stream's duplicate
window. The row key travels as the Partition-Key header and the decoded
header column is copied into message metadata.

Failures are reported as *Error values carrying a closed Kind:

  - KindUnavailable: the broker could not be reached (no servers, closed or
    draining connection, timeouts, open client-side breaker)
  - KindDeliveryFailed: the broker answered and rejected the message (no
    stream bound to the subject, JetStream API error, payload too large)
  - KindOther: anything else, including undecodable headers

The package also carries an embedded nats-server for single-node and test
deployments and EnsureStream for idempotent stream provisioning.
*/
package broker
