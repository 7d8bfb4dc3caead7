// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// Drivers for every supported dialect.
	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/sijms/go-ora/v2"

	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/metrics"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// ErrUnsupportedDialect is returned by Open for an unknown dialect.
var ErrUnsupportedDialect = errors.New("unsupported database dialect")

// Tables holds the configurable table names.
type Tables struct {
	Outbox   string
	Missing  string
	Exceeded string
	Offset   string
}

// DefaultTables returns the default table names.
func DefaultTables() Tables {
	return Tables{
		Outbox:   "outbox_events",
		Missing:  "missing_events",
		Exceeded: "exceeded_events",
		Offset:   "outbox_offset",
	}
}

// Config configures a Store.
type Config struct {
	Dialect string
	DSN     string
	Tables  Tables

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// WriteRetryAttempts is the total number of attempts for a write.
	WriteRetryAttempts int
	// WriteRetryInterval is the constant delay between write attempts.
	WriteRetryInterval time.Duration

	// AutoMigrate creates missing tables and seeds the offset row.
	AutoMigrate bool
}

// Store implements every store contract over one *sql.DB.
type Store struct {
	db      *sql.DB
	dialect dialect
	tables  Tables
	retry   retryPolicy
	q       queries
}

// Open connects to the datastore, verifies connectivity and optionally
// migrates the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, err := lookupDialect(cfg.Dialect)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(d.driverName, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.name, err)
	}

	s, err := newStore(db, d, cfg)
	if err != nil {
		closeQuietly(db)
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		closeQuietly(db)
		return nil, store.Wrap("ping", "", err)
	}

	if cfg.AutoMigrate {
		if err := s.EnsureSchema(ctx); err != nil {
			closeQuietly(db)
			return nil, err
		}
	}

	logging.Info().
		Str("dialect", d.name).
		Str("outbox_table", s.tables.Outbox).
		Str("missing_table", s.tables.Missing).
		Bool("auto_migrate", cfg.AutoMigrate).
		Msg("Outbox datastore connected")

	return s, nil
}

func newStore(db *sql.DB, d dialect, cfg Config) (*Store, error) {
	tables := cfg.Tables
	defaults := DefaultTables()
	if tables.Outbox == "" {
		tables.Outbox = defaults.Outbox
	}
	if tables.Missing == "" {
		tables.Missing = defaults.Missing
	}
	if tables.Exceeded == "" {
		tables.Exceeded = defaults.Exceeded
	}
	if tables.Offset == "" {
		tables.Offset = defaults.Offset
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	attempts := cfg.WriteRetryAttempts
	if attempts <= 0 {
		attempts = 3
	}
	interval := cfg.WriteRetryInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	return &Store{
		db:      db,
		dialect: d,
		tables:  tables,
		retry:   retryPolicy{attempts: attempts, interval: interval},
		q:       buildQueries(d, tables),
	}, nil
}

// Stores returns the store bundle backed by s.
func (s *Store) Stores() store.Stores {
	return store.Stores{
		Offsets:  offsetRepo{s},
		Outbox:   outboxRepo{s},
		Missing:  missingRepo{s},
		Exceeded: exceededRepo{s},
		Writer:   outboxRepo{s},
		Pinger:   s,
		Close:    s.Close,
	}
}

// DB returns the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the dialect name.
func (s *Store) Dialect() string {
	return s.dialect.name
}

// Ping implements store.Pinger.
func (s *Store) Ping(ctx context.Context) error {
	return store.Wrap("ping", "", s.db.PingContext(ctx))
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// observe records latency and wraps err as a persistence error.
func observe(op, table string, start time.Time, err error) error {
	metrics.RecordStoreOperation(op, table, time.Since(start), err)
	return store.Wrap(op, table, err)
}

func closeQuietly(db *sql.DB) {
	if err := db.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close database")
	}
}
