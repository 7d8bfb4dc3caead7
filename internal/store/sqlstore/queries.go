// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package sqlstore

import (
	"fmt"
	"strings"
)

// queries holds the statements that do not depend on an IN list length.
type queries struct {
	getOffset       string
	setOffset       string
	getNewestID     string
	getEventsFrom   func(limit int) string
	getEventsByID   func(n int) string
	appendOutbox    string
	insertMissing   string
	updateMissing   string
	getMissingBatch func(limit int) string
	incrementRetry  func(n int) string
	deleteMissing   func(n int) string
	insertExceeded  string
}

func buildQueries(d dialect, t Tables) queries {
	q := d.quote
	p := d.placeholder
	outboxColumns := fmt.Sprintf("id, %s, %s, topic, header", q("key"), q("value"))

	return queries{
		getOffset: fmt.Sprintf("SELECT %s FROM %s", q("offset"), t.Offset) + d.limit(1),
		setOffset: fmt.Sprintf("UPDATE %s SET %s = %s", t.Offset, q("offset"), p(1)),

		getNewestID: fmt.Sprintf("SELECT id FROM %s WHERE id > %s ORDER BY id", t.Outbox, p(1)) + d.limit(1),
		getEventsFrom: func(limit int) string {
			return fmt.Sprintf("SELECT %s FROM %s WHERE id >= %s ORDER BY id", outboxColumns, t.Outbox, p(1)) + d.limit(limit)
		},
		getEventsByID: func(n int) string {
			return fmt.Sprintf("SELECT %s FROM %s WHERE id IN (%s) ORDER BY id", outboxColumns, t.Outbox, d.placeholders(1, n))
		},
		appendOutbox: fmt.Sprintf("INSERT INTO %s (%s, %s, topic, header) VALUES (%s)",
			t.Outbox, q("key"), q("value"), d.placeholders(1, 4)),

		insertMissing: insertMissingQuery(d, t.Missing),
		updateMissing: fmt.Sprintf("UPDATE %s SET retry_count = %s, exception_thrown = %s WHERE id = %s",
			t.Missing, p(1), p(2), p(3)),
		getMissingBatch: func(limit int) string {
			return fmt.Sprintf("SELECT id, missed_date, retry_count, exception_thrown FROM %s ORDER BY id", t.Missing) + d.limit(limit)
		},
		incrementRetry: func(n int) string {
			return fmt.Sprintf("UPDATE %s SET retry_count = retry_count + 1 WHERE id IN (%s)", t.Missing, d.placeholders(1, n))
		},
		deleteMissing: func(n int) string {
			return fmt.Sprintf("DELETE FROM %s WHERE id IN (%s)", t.Missing, d.placeholders(1, n))
		},

		insertExceeded: fmt.Sprintf("INSERT INTO %s (id, missed_date, retry_count, exceeded_date, exception_thrown) VALUES (%s)",
			t.Exceeded, d.placeholders(1, 5)),
	}
}

// insertMissingQuery leaves an existing row for the same id untouched, so
// recording a gap twice is a no-op.
func insertMissingQuery(d dialect, table string) string {
	const columns = "id, missed_date, retry_count, exception_thrown"
	values := d.placeholders(1, 4)

	switch d.name {
	case DialectMySQL:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON DUPLICATE KEY UPDATE id = id", table, columns, values)
	case DialectOracle:
		return fmt.Sprintf("MERGE INTO %s t USING (SELECT %s AS id, %s AS missed_date, %s AS retry_count, %s AS exception_thrown FROM DUAL) s "+
			"ON (t.id = s.id) WHEN NOT MATCHED THEN INSERT (%s) VALUES (s.id, s.missed_date, s.retry_count, s.exception_thrown)",
			table, d.placeholder(1), d.placeholder(2), d.placeholder(3), d.placeholder(4), columns)
	default:
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (id) DO NOTHING", table, columns, values)
	}
}

// sanitizeForLog trims whitespace runs so statements log on one line.
func sanitizeForLog(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
