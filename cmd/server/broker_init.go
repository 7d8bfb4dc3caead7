// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package main

import (
	"context"
	"fmt"

	"github.com/tomtom215/outboxpublisher/internal/broker"
	"github.com/tomtom215/outboxpublisher/internal/config"
	"github.com/tomtom215/outboxpublisher/internal/logging"
)

// brokerComponents groups the optional embedded server and the publisher.
type brokerComponents struct {
	server    *broker.EmbeddedServer
	publisher *broker.Publisher
}

// startBroker starts the embedded server when configured, connects the
// publisher and makes sure the outbox stream exists.
func startBroker(ctx context.Context, cfg config.NATSConfig) (*brokerComponents, error) {
	c := &brokerComponents{}
	url := cfg.URL

	if cfg.EmbeddedServer {
		srv, err := broker.NewEmbeddedServer(serverConfig(cfg))
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		c.server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Str("store_dir", cfg.StoreDir).Msg("Embedded NATS server started")
	}

	pub, err := broker.NewPublisher(publisherConfig(cfg, url))
	if err != nil {
		c.Shutdown(ctx)
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	c.publisher = pub

	js, err := pub.JetStream()
	if err != nil {
		c.Shutdown(ctx)
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	if _, err := broker.EnsureStream(ctx, js, streamConfig(cfg)); err != nil {
		c.Shutdown(ctx)
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.StreamName, err)
	}
	logging.Info().Str("stream", cfg.StreamName).Strs("subjects", cfg.StreamSubjects).Msg("Broker ready")
	return c, nil
}

// Shutdown closes the publisher, then the embedded server.
func (c *brokerComponents) Shutdown(ctx context.Context) {
	if c.publisher != nil {
		if err := c.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing NATS publisher")
		}
	}
	if c.server != nil {
		if err := c.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down embedded NATS server")
		}
	}
}

func serverConfig(cfg config.NATSConfig) broker.ServerConfig {
	sc := broker.DefaultServerConfig()
	sc.Host = cfg.Host
	sc.Port = cfg.Port
	sc.StoreDir = cfg.StoreDir
	if cfg.MaxMemory > 0 {
		sc.JetStreamMaxMem = cfg.MaxMemory
	}
	if cfg.MaxStore > 0 {
		sc.JetStreamMaxStore = cfg.MaxStore
	}
	return sc
}

func publisherConfig(cfg config.NATSConfig, url string) broker.Config {
	pc := broker.DefaultConfig(url)
	pc.MaxReconnects = cfg.MaxReconnects
	pc.ReconnectWait = cfg.ReconnectWait
	pc.PublishTimeout = cfg.PublishTimeout
	pc.PublishRetryAttempts = cfg.PublishRetryAttempts
	pc.Breaker.Enabled = cfg.BreakerEnabled
	pc.Breaker.FailureThreshold = cfg.BreakerThreshold
	pc.Breaker.Timeout = cfg.BreakerTimeout
	pc.RateLimit = cfg.RateLimit
	pc.RateBurst = cfg.RateBurst
	return pc
}

func streamConfig(cfg config.NATSConfig) broker.StreamConfig {
	sc := broker.DefaultStreamConfig()
	sc.Name = cfg.StreamName
	sc.Subjects = cfg.StreamSubjects
	sc.Storage = cfg.StreamStorage
	sc.MaxAge = cfg.StreamMaxAge
	sc.DuplicateWindow = cfg.StreamDuplicateWindow
	sc.Replicas = cfg.StreamReplicas
	return sc
}
