// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/outbox-publisher/config.yaml",
	"/etc/outbox-publisher/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. File and environment layers
// are applied on top.
func defaultConfig() *Config {
	return &Config{
		Worker: WorkerConfig{
			OutboxEventsBatchSize:      5000,
			MissingEventsBatchSize:     500,
			MissingEventsWaitDuration:  20 * time.Second,
			MissingEventsMaxRetryCount: 2,
			QueueWaitDuration:          100 * time.Millisecond,
			BrokerErrorsMaxRetryCount:  5,
			RedeliveryDelayAfterError:  250 * time.Millisecond,
			NoNewEventsDelay:           200 * time.Millisecond,
			ErrorBackoffInitial:        100 * time.Millisecond,
			ErrorBackoffMax:            10 * time.Second,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:             false,
			Threshold:           3,
			Duration:            30 * time.Second,
			HalfOpenMaxAttempts: 1,
			OpenWait:            time.Second,
		},
		Leadership: LeadershipConfig{
			Enabled:       true,
			Resource:      "outbox-publisher-leader",
			RaceInterval:  2 * time.Second,
			CheckInterval: time.Second,
			Lifetime:      10 * time.Second,
		},
		Lock: LockConfig{
			Backend:  "memory",
			KVBucket: "OUTBOX_LOCKS",
		},
		Publishing: PublishingConfig{
			Enabled: true,
		},
		Datastore: DatastoreConfig{
			Type: "memory",
			Tables: TablesConfig{
				Outbox:   "outbox_events",
				Missing:  "missing_events",
				Exceeded: "exceeded_events",
				Offset:   "outbox_offset",
			},
			MaxOpenConns:       10,
			MaxIdleConns:       5,
			ConnMaxLifetime:    30 * time.Minute,
			WriteRetryAttempts: 3,
			WriteRetryInterval: 100 * time.Millisecond,
			AutoMigrate:        true,
		},
		NATS: NATSConfig{
			URL:                   "nats://127.0.0.1:4222",
			EmbeddedServer:        true,
			Host:                  "127.0.0.1",
			Port:                  4222,
			StoreDir:              "/data/nats/jetstream",
			MaxMemory:             256 * 1024 * 1024,
			MaxStore:              1024 * 1024 * 1024,
			StreamName:            "OUTBOX",
			StreamSubjects:        []string{"outbox.>"},
			StreamStorage:         "file",
			StreamMaxAge:          7 * 24 * time.Hour,
			StreamDuplicateWindow: 2 * time.Minute,
			StreamReplicas:        1,
			MaxReconnects:         -1,
			ReconnectWait:         2 * time.Second,
			PublishTimeout:        5 * time.Second,
			PublishRetryAttempts:  2,
			BreakerEnabled:        true,
			BreakerThreshold:      5,
			BreakerTimeout:        30 * time.Second,
			RateLimit:             0,
			RateBurst:             0,
		},
		Server: ServerConfig{
			Enabled:         true,
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads defaults, then the optional config file, then the
// allow-listed environment variables, and validates the result.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// OUTBOX_EVENTS_BATCH_SIZE -> worker.outbox_events_batch_size
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// FindConfigFile returns the config file LoadWithKoanf would read, or "".
func FindConfigFile() string {
	return findConfigFile()
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when set from env.
var sliceConfigPaths = []string{
	"nats.stream_subjects",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lower-cased) to koanf paths.
// Variables not listed are ignored.
var envMappings = map[string]string{
	// Worker
	"outbox_events_batch_size":       "worker.outbox_events_batch_size",
	"missing_events_batch_size":      "worker.missing_events_batch_size",
	"missing_events_wait_duration":   "worker.missing_events_wait_duration",
	"missing_events_max_retry_count": "worker.missing_events_max_retry_count",
	"queue_wait_duration":            "worker.queue_wait_duration",
	"broker_errors_max_retry_count":  "worker.broker_errors_max_retry_count",
	"redelivery_delay_after_error":   "worker.redelivery_delay_after_error",
	"no_new_events_delay":            "worker.no_new_events_delay",
	"error_backoff_initial":          "worker.error_backoff_initial",
	"error_backoff_max":              "worker.error_backoff_max",

	// Datastore circuit breaker
	"circuit_breaker_enabled":                "circuit_breaker.enabled",
	"circuit_breaker_threshold":              "circuit_breaker.threshold",
	"circuit_breaker_duration":               "circuit_breaker.duration",
	"circuit_breaker_half_open_max_attempts": "circuit_breaker.half_open_max_attempts",
	"circuit_breaker_open_wait":              "circuit_breaker.open_wait",

	// Leadership
	"leadership_enabled":        "leadership.enabled",
	"leadership_token":          "leadership.token",
	"leadership_resource":       "leadership.resource",
	"leadership_race_interval":  "leadership.race_interval",
	"leadership_check_interval": "leadership.check_interval",
	"leadership_lifetime":       "leadership.lifetime",
	"lock_backend":              "lock.backend",
	"lock_badger_dir":           "lock.badger_dir",
	"lock_kv_bucket":            "lock.kv_bucket",

	"publishing_enabled": "publishing.enabled",

	// Datastore
	"datastore_type":                 "datastore.type",
	"datastore_dsn":                  "datastore.dsn",
	"datastore_outbox_table":         "datastore.tables.outbox",
	"datastore_missing_table":        "datastore.tables.missing",
	"datastore_exceeded_table":       "datastore.tables.exceeded",
	"datastore_offset_table":         "datastore.tables.offset",
	"datastore_max_open_conns":       "datastore.max_open_conns",
	"datastore_max_idle_conns":       "datastore.max_idle_conns",
	"datastore_conn_max_lifetime":    "datastore.conn_max_lifetime",
	"datastore_write_retry_attempts": "datastore.write_retry_attempts",
	"datastore_write_retry_interval": "datastore.write_retry_interval",
	"datastore_auto_migrate":         "datastore.auto_migrate",

	// NATS
	"nats_url":                     "nats.url",
	"nats_embedded":                "nats.embedded_server",
	"nats_host":                    "nats.host",
	"nats_port":                    "nats.port",
	"nats_store_dir":               "nats.store_dir",
	"nats_max_memory":              "nats.max_memory",
	"nats_max_store":               "nats.max_store",
	"nats_stream_name":             "nats.stream_name",
	"nats_stream_subjects":         "nats.stream_subjects",
	"nats_stream_storage":          "nats.stream_storage",
	"nats_stream_max_age":          "nats.stream_max_age",
	"nats_stream_duplicate_window": "nats.stream_duplicate_window",
	"nats_stream_replicas":         "nats.stream_replicas",
	"nats_max_reconnects":          "nats.max_reconnects",
	"nats_reconnect_wait":          "nats.reconnect_wait",
	"nats_publish_timeout":         "nats.publish_timeout",
	"nats_publish_retry_attempts":  "nats.publish_retry_attempts",
	"nats_breaker_enabled":         "nats.breaker_enabled",
	"nats_breaker_threshold":       "nats.breaker_threshold",
	"nats_breaker_timeout":         "nats.breaker_timeout",
	"nats_rate_limit":              "nats.rate_limit",
	"nats_rate_burst":              "nats.rate_burst",

	// Ops server
	"http_enabled":                 "server.enabled",
	"http_host":                    "server.host",
	"http_port":                    "server.port",
	"http_read_timeout":            "server.read_timeout",
	"http_write_timeout":           "server.write_timeout",
	"http_shutdown_timeout":        "server.shutdown_timeout",
	"rate_limit_reqs":              "server.rate_limit_reqs",
	"rate_limit_window":            "server.rate_limit_window",
	"http_allow_publishing_toggle": "server.allow_publishing_toggle",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are skipped.
//
// Examples:
//   - OUTBOX_EVENTS_BATCH_SIZE -> worker.outbox_events_batch_size
//   - DATASTORE_DSN -> datastore.dsn
//   - NATS_URL -> nats.url
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}

// WatchConfigFile calls callback whenever the file at path changes. Callers
// synchronize their own reload.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(event interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
