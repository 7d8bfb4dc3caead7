// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

// Package sqlstore implements the outbox store contracts over database/sql.
//
// Supported dialects and the drivers they register:
//
//   - postgres: github.com/jackc/pgx/v5/stdlib ("pgx")
//   - mysql:    github.com/go-sql-driver/mysql ("mysql"); the DSN must set parseTime=true
//   - oracle:   github.com/sijms/go-ora/v2 ("oracle")
//   - duckdb:   github.com/duckdb/duckdb-go/v2 ("duckdb")
//
// Table names are configurable and may carry a schema prefix
// (shipment_outbox.outbox_events). Column names are fixed:
//
//	outbox:   id, key, value, topic, header
//	missing:  id, missed_date, retry_count, exception_thrown
//	exceeded: id, missed_date, retry_count, exceeded_date, exception_thrown
//	offset:   offset
//
// Writes are retried with a constant backoff; reads are not. Every error is
// returned as a *store.Error so that pipelines can route it to their circuit
// breaker.
package sqlstore
