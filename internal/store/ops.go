// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package store

// Operation names used in errors, logs and metrics labels.
const (
	OpGetOffset        = "get_offset"
	OpSetOffset        = "set_offset"
	OpGetEventsByID    = "get_events_by_id"
	OpGetNewestEventID = "get_newest_event_id"
	OpGetEventsFrom    = "get_events_from"
	OpInsertMissing    = "insert_missing"
	OpUpdateMissing    = "update_missing"
	OpGetMissingBatch  = "get_missing_batch"
	OpIncrementRetry   = "increment_retry"
	OpDeleteMissing    = "delete_missing"
	OpInsertExceeded   = "insert_exceeded"
	OpAppendOutbox     = "append_outbox"
)
