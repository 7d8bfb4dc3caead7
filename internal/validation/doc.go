// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

// Package validation validates configuration structs with
// go-playground/validator v10.
//
// A single validator instance is shared and caches struct metadata. Field
// names in errors come from koanf tags, so a failure reads as the dotted
// configuration path (for example "worker.batch_size must be at least 1").
//
// Custom tags:
//   - sqlident: a plain or schema-qualified SQL identifier
//     ([A-Za-z_][A-Za-z0-9_]* with optional dot-separated parts)
//   - natsurl: a comma-separated list of nats://, tls://, ws:// or wss:// URLs
package validation
