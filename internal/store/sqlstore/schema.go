// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package sqlstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// ErrMigrationUnsupported is returned by EnsureSchema for dialects whose
// tables must be provisioned by the owning service.
var ErrMigrationUnsupported = errors.New("schema migration not supported for dialect")

// EnsureSchema creates the four tables when absent and seeds the offset row
// with 0.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements, err := schemaStatements(s.dialect, s.tables)
	if err != nil {
		return err
	}

	for _, stmt := range statements {
		logging.Debug().Str("statement", sanitizeForLog(stmt)).Msg("Applying schema statement")
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return store.Wrap("migrate", "", fmt.Errorf("%s: %w", sanitizeForLog(stmt), err))
		}
	}
	return nil
}

func schemaStatements(d dialect, t Tables) ([]string, error) {
	q := d.quote
	seedOffset := fmt.Sprintf("INSERT INTO %[1]s (%[2]s) SELECT 0%[3]s WHERE NOT EXISTS (SELECT 1 FROM %[1]s)",
		t.Offset, q("offset"), d.fromDual)

	switch d.name {
	case DialectPostgres:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id BIGSERIAL PRIMARY KEY,
				%s TEXT,
				%s TEXT,
				topic TEXT NOT NULL,
				header TEXT,
				created_date TIMESTAMPTZ NOT NULL DEFAULT now()
			)`, t.Outbox, q("key"), q("value")),
			missingDDL(t.Missing, "TIMESTAMPTZ", "BOOLEAN", "FALSE"),
			exceededDDL(t.Exceeded, "TIMESTAMPTZ", "BOOLEAN", "FALSE"),
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s BIGINT NOT NULL)", t.Offset, q("offset")),
			seedOffset,
		}, nil

	case DialectDuckDB:
		seq := t.Outbox + "_id_seq"
		return []string{
			fmt.Sprintf("CREATE SEQUENCE IF NOT EXISTS %s START 1", seq),
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id BIGINT PRIMARY KEY DEFAULT nextval('%s'),
				%s VARCHAR,
				%s VARCHAR,
				topic VARCHAR NOT NULL,
				header VARCHAR,
				created_date TIMESTAMP NOT NULL DEFAULT current_timestamp
			)`, t.Outbox, seq, q("key"), q("value")),
			missingDDL(t.Missing, "TIMESTAMP", "BOOLEAN", "FALSE"),
			exceededDDL(t.Exceeded, "TIMESTAMP", "BOOLEAN", "FALSE"),
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s BIGINT NOT NULL)", t.Offset, q("offset")),
			seedOffset,
		}, nil

	case DialectMySQL:
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
				id BIGINT AUTO_INCREMENT PRIMARY KEY,
				%s VARCHAR(512),
				%s LONGTEXT,
				topic VARCHAR(255) NOT NULL,
				header TEXT,
				created_date TIMESTAMP(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
			)`, t.Outbox, q("key"), q("value")),
			missingDDL(t.Missing, "DATETIME(6)", "TINYINT(1)", "0"),
			exceededDDL(t.Exceeded, "DATETIME(6)", "TINYINT(1)", "0"),
			fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s BIGINT NOT NULL)", t.Offset, q("offset")),
			seedOffset,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrMigrationUnsupported, d.name)
	}
}

func missingDDL(table, timestampType, boolType, falseLiteral string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGINT PRIMARY KEY,
		missed_date %s NOT NULL,
		retry_count INTEGER NOT NULL DEFAULT 0,
		exception_thrown %s NOT NULL DEFAULT %s
	)`, table, timestampType, boolType, falseLiteral)
}

func exceededDDL(table, timestampType, boolType, falseLiteral string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id BIGINT NOT NULL,
		missed_date %s NOT NULL,
		retry_count INTEGER NOT NULL,
		exceeded_date %s NOT NULL,
		exception_thrown %s NOT NULL DEFAULT %s
	)`, table, timestampType, timestampType, boolType, falseLiteral)
}
