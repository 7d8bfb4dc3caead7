// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package main

import (
	"github.com/tomtom215/outboxpublisher/internal/api"
	"github.com/tomtom215/outboxpublisher/internal/circuitbreaker"
	"github.com/tomtom215/outboxpublisher/internal/config"
	"github.com/tomtom215/outboxpublisher/internal/dispatch"
	"github.com/tomtom215/outboxpublisher/internal/leader"
	"github.com/tomtom215/outboxpublisher/internal/outbox"
	"github.com/tomtom215/outboxpublisher/internal/pipeline"
	"github.com/tomtom215/outboxpublisher/internal/recovery"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// newRunners builds the outbox and recovery pipelines. Each owns its
// datastore breaker; both share the dispatcher and the elector.
func newRunners(cfg *config.Config, stores store.Stores, d *dispatch.Dispatcher, elector leader.Elector) []*pipeline.Runner {
	backoff := pipeline.WithErrorBackoff(cfg.Worker.ErrorBackoffInitial, cfg.Worker.ErrorBackoffMax)

	outboxRunner := pipeline.NewRunner(
		outbox.PipelineName,
		outbox.NewCoordinator(stores, d, outboxConfig(cfg.Worker)),
		elector,
		circuitbreaker.New(outbox.PipelineName, breakerConfig(cfg.CircuitBreaker)),
		backoff,
	)
	recoveryRunner := pipeline.NewRunner(
		recovery.PipelineName,
		recovery.NewCoordinator(stores, d, recoveryConfig(cfg.Worker)),
		elector,
		circuitbreaker.New(recovery.PipelineName, breakerConfig(cfg.CircuitBreaker)),
		backoff,
	)
	return []*pipeline.Runner{outboxRunner, recoveryRunner}
}

func dispatcherConfig(cfg *config.Config) dispatch.Config {
	return dispatch.Config{
		BrokerErrorsMaxRetryCount: cfg.Worker.BrokerErrorsMaxRetryCount,
		RedeliveryDelayAfterError: cfg.Worker.RedeliveryDelayAfterError,
		PublishingEnabled:         cfg.Publishing.Enabled,
	}
}

func outboxConfig(w config.WorkerConfig) outbox.Config {
	return outbox.Config{
		BatchSize:         w.OutboxEventsBatchSize,
		QueueWaitDuration: w.QueueWaitDuration,
		NoNewEventsDelay:  w.NoNewEventsDelay,
	}
}

func recoveryConfig(w config.WorkerConfig) recovery.Config {
	return recovery.Config{
		BatchSize:                  w.MissingEventsBatchSize,
		WaitDuration:               w.MissingEventsWaitDuration,
		MissingEventsMaxRetryCount: w.MissingEventsMaxRetryCount,
		BrokerErrorsMaxRetryCount:  w.BrokerErrorsMaxRetryCount,
	}
}

func breakerConfig(cb config.CircuitBreakerConfig) circuitbreaker.Config {
	return circuitbreaker.Config{
		Enabled:             cb.Enabled,
		Threshold:           cb.Threshold,
		Duration:            cb.Duration,
		HalfOpenMaxAttempts: cb.HalfOpenMaxAttempts,
		OpenWait:            cb.OpenWait,
	}
}

func routerConfig(s config.ServerConfig) api.RouterConfig {
	return api.RouterConfig{
		RateLimitRequests: s.RateLimitReqs,
		RateLimitWindow:   s.RateLimitWindow,

		AllowPublishingToggle: s.AllowPublishingToggle,
	}
}
