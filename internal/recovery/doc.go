// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

/*
Package recovery drains the missing event backlog.

A backlog record exists for every outbox id that gap detection saw missing
and for every polled event whose first publish failed. Each cycle:

 1. takes a batch of records
 2. looks up the outbox rows of the retryable ones (retry count below the
    missing limit, or a failed publish)
 3. bumps the retry count of retryable ids still absent from the outbox
 4. republishes the matched rows concurrently
 5. deletes records that were delivered, escalates matched records at the
    broker retry limit and unmatched records at the missing retry limit to
    the exceeded table

Deletion after delivery and escalation are exclusive outcomes for a record.
*/
package recovery
