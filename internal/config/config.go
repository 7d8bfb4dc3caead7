// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package config

import "time"

// Config is the complete publisher configuration.
type Config struct {
	Worker         WorkerConfig         `koanf:"worker"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker"`
	Leadership     LeadershipConfig     `koanf:"leadership"`
	Lock           LockConfig           `koanf:"lock"`
	Publishing     PublishingConfig     `koanf:"publishing"`
	Datastore      DatastoreConfig      `koanf:"datastore"`
	NATS           NATSConfig           `koanf:"nats"`
	Server         ServerConfig         `koanf:"server"`
	Supervisor     SupervisorConfig     `koanf:"supervisor"`
	Logging        LoggingConfig        `koanf:"logging"`
}

// WorkerConfig holds the pipeline settings.
//
// Environment Variables:
//   - OUTBOX_EVENTS_BATCH_SIZE (default: 5000)
//   - MISSING_EVENTS_BATCH_SIZE (default: 500)
//   - MISSING_EVENTS_WAIT_DURATION (default: 20s)
//   - MISSING_EVENTS_MAX_RETRY_COUNT (default: 2)
//   - QUEUE_WAIT_DURATION (default: 100ms)
//   - BROKER_ERRORS_MAX_RETRY_COUNT (default: 5)
//   - REDELIVERY_DELAY_AFTER_ERROR (default: 250ms)
//   - NO_NEW_EVENTS_DELAY (default: 200ms)
type WorkerConfig struct {
	OutboxEventsBatchSize      int           `koanf:"outbox_events_batch_size" validate:"min=1,max=100000"`
	MissingEventsBatchSize     int           `koanf:"missing_events_batch_size" validate:"min=1,max=100000"`
	MissingEventsWaitDuration  time.Duration `koanf:"missing_events_wait_duration" validate:"gte=0"`
	MissingEventsMaxRetryCount int           `koanf:"missing_events_max_retry_count" validate:"min=1"`
	QueueWaitDuration          time.Duration `koanf:"queue_wait_duration" validate:"gte=0"`
	BrokerErrorsMaxRetryCount  int           `koanf:"broker_errors_max_retry_count" validate:"min=1"`
	RedeliveryDelayAfterError  time.Duration `koanf:"redelivery_delay_after_error" validate:"gte=0"`
	NoNewEventsDelay           time.Duration `koanf:"no_new_events_delay" validate:"gte=0"`

	// ErrorBackoffInitial and ErrorBackoffMax bound the exponential pause
	// after consecutive datastore failures.
	ErrorBackoffInitial time.Duration `koanf:"error_backoff_initial" validate:"gt=0"`
	ErrorBackoffMax     time.Duration `koanf:"error_backoff_max" validate:"gt=0"`
}

// CircuitBreakerConfig configures the datastore breaker each pipeline owns.
type CircuitBreakerConfig struct {
	Enabled             bool          `koanf:"enabled"`
	Threshold           int           `koanf:"threshold" validate:"min=1"`
	Duration            time.Duration `koanf:"duration" validate:"gt=0"`
	HalfOpenMaxAttempts int           `koanf:"half_open_max_attempts" validate:"min=1"`
	OpenWait            time.Duration `koanf:"open_wait" validate:"gt=0"`
}

// LeadershipConfig configures leader election. When disabled every instance
// publishes.
type LeadershipConfig struct {
	Enabled bool `koanf:"enabled"`
	// Token identifies this instance. Empty falls back to HOSTNAME, the OS
	// hostname, then a random uuid.
	Token         string        `koanf:"token"`
	Resource      string        `koanf:"resource" validate:"required"`
	RaceInterval  time.Duration `koanf:"race_interval" validate:"gt=0"`
	CheckInterval time.Duration `koanf:"check_interval" validate:"gt=0"`
	Lifetime      time.Duration `koanf:"lifetime" validate:"gt=0"`
}

// LockConfig selects the leader lock store.
type LockConfig struct {
	Backend string `koanf:"backend" validate:"oneof=memory badger nats"`
	// BadgerDir is the badger directory; empty opens an in-memory database.
	BadgerDir string `koanf:"badger_dir"`
	KVBucket  string `koanf:"kv_bucket" validate:"required"`
}

// PublishingConfig holds the publishing switch. While disabled events are
// consumed and the offset advances but nothing reaches the broker.
type PublishingConfig struct {
	Enabled bool `koanf:"enabled"`
}

// DatastoreConfig selects and tunes the outbox database.
type DatastoreConfig struct {
	Type string `koanf:"type" validate:"oneof=postgres mysql oracle duckdb memory"`
	DSN  string `koanf:"dsn"`

	Tables TablesConfig `koanf:"tables"`

	MaxOpenConns    int           `koanf:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"gte=0"`

	WriteRetryAttempts int           `koanf:"write_retry_attempts" validate:"min=1,max=20"`
	WriteRetryInterval time.Duration `koanf:"write_retry_interval" validate:"gte=0"`

	// AutoMigrate creates missing tables and seeds the offset row.
	AutoMigrate bool `koanf:"auto_migrate"`
}

// TablesConfig names the four tables.
type TablesConfig struct {
	Outbox   string `koanf:"outbox" validate:"required,sqlident"`
	Missing  string `koanf:"missing" validate:"required,sqlident"`
	Exceeded string `koanf:"exceeded" validate:"required,sqlident"`
	Offset   string `koanf:"offset" validate:"required,sqlident"`
}

// NATSConfig configures the broker connection, the optional embedded server
// and the stream receiving published subjects.
type NATSConfig struct {
	URL string `koanf:"url" validate:"natsurl"`

	EmbeddedServer bool   `koanf:"embedded_server"`
	Host           string `koanf:"host"`
	Port           int    `koanf:"port" validate:"gte=-1,lte=65535"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory" validate:"gte=0"`
	MaxStore       int64  `koanf:"max_store" validate:"gte=0"`

	StreamName            string        `koanf:"stream_name" validate:"required"`
	StreamSubjects        []string      `koanf:"stream_subjects" validate:"min=1"`
	StreamStorage         string        `koanf:"stream_storage" validate:"oneof=file memory"`
	StreamMaxAge          time.Duration `koanf:"stream_max_age" validate:"gte=0"`
	StreamDuplicateWindow time.Duration `koanf:"stream_duplicate_window" validate:"gte=0"`
	StreamReplicas        int           `koanf:"stream_replicas" validate:"min=1,max=5"`

	MaxReconnects        int           `koanf:"max_reconnects"`
	ReconnectWait        time.Duration `koanf:"reconnect_wait" validate:"gte=0"`
	PublishTimeout       time.Duration `koanf:"publish_timeout" validate:"gt=0"`
	PublishRetryAttempts int           `koanf:"publish_retry_attempts" validate:"gte=0"`

	BreakerEnabled   bool          `koanf:"breaker_enabled"`
	BreakerThreshold uint32        `koanf:"breaker_threshold" validate:"min=1"`
	BreakerTimeout   time.Duration `koanf:"breaker_timeout" validate:"gt=0"`

	// RateLimit is publishes per second; zero disables throttling.
	RateLimit float64 `koanf:"rate_limit" validate:"gte=0"`
	RateBurst int     `koanf:"rate_burst" validate:"gte=0"`
}

// ServerConfig configures the ops HTTP server.
type ServerConfig struct {
	Enabled         bool          `koanf:"enabled"`
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs" validate:"gte=0"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window" validate:"gte=0"`

	// AllowPublishingToggle exposes PUT /api/v1/publishing. The endpoint is
	// unauthenticated and disabling publishing skips events for good.
	AllowPublishingToggle bool `koanf:"allow_publishing_toggle"`
}

// SupervisorConfig holds the suture restart policy.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gt=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// LoggingConfig holds zerolog settings.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn warning error"`
	// Format is json or console.
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// Load is the entry point used by cmd/server.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
