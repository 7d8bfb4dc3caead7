// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

/*
Package outbox polls the outbox table and publishes new rows.

Each cycle reads the committed offset, fetches the next window of rows above
it, records every id missing from the window as a gap, publishes the window
concurrently and advances the offset to the highest id in the window.

Writer transactions commit out of id order, so an id below the newest
visible row may still appear later. Gap detection hands those ids to the
recovery pipeline instead of waiting for them here.
*/
package outbox
