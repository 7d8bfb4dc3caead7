// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package broker

import "time"

// Config holds publisher connection settings.
type Config struct {
	URL             string
	ClientName      string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
	ConnectTimeout  time.Duration

	// PublishTimeout bounds the wait for a JetStream ack.
	PublishTimeout       time.Duration
	PublishRetryAttempts int
	PublishRetryWait     time.Duration

	Breaker BreakerConfig

	// RateLimit is publishes per second; zero disables throttling.
	RateLimit float64
	RateBurst int
}

// BreakerConfig configures the client-side breaker around publishes. Only
// KindUnavailable failures count against it.
type BreakerConfig struct {
	Enabled          bool
	FailureThreshold uint32
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
}

// DefaultConfig returns production defaults for url.
func DefaultConfig(url string) Config {
	return Config{
		URL:                  url,
		ClientName:           "outbox-publisher",
		MaxReconnects:        -1, // unlimited
		ReconnectWait:        2 * time.Second,
		ReconnectBuffer:      8 * 1024 * 1024,
		ConnectTimeout:       5 * time.Second,
		PublishTimeout:       5 * time.Second,
		PublishRetryAttempts: 3,
		PublishRetryWait:     100 * time.Millisecond,
		Breaker: BreakerConfig{
			Enabled:          true,
			FailureThreshold: 5,
			MaxRequests:      1,
			Interval:         time.Minute,
			Timeout:          30 * time.Second,
		},
	}
}

// ServerConfig holds embedded nats-server settings.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
	MaxPayload        int32
	NoLog             bool
}

// DefaultServerConfig returns defaults for a local embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   256 << 20,
		JetStreamMaxStore: 4 << 30,
		MaxPayload:        8 * 1024 * 1024,
	}
}

// StreamConfig describes the JetStream stream that captures published
// subjects.
type StreamConfig struct {
	Name            string
	Subjects        []string
	Storage         string // "file" or "memory"
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns the default outbox stream.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            "OUTBOX",
		Subjects:        []string{"outbox.>"},
		Storage:         "file",
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        -1,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}
