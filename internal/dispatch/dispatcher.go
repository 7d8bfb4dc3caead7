// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

// Package dispatch publishes single outbox events and records failures in the
// missing event backlog.
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/outboxpublisher/internal/broker"
	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/metrics"
	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/pipeline/wait"
	"github.com/tomtom215/outboxpublisher/internal/store"
)

// Publish paths used as metric labels.
const (
	PathOutbox   = "outbox"
	PathRecovery = "recovery"
)

// Config holds dispatcher settings.
type Config struct {
	BrokerErrorsMaxRetryCount int
	RedeliveryDelayAfterError time.Duration
	PublishingEnabled         bool
}

// DefaultConfig returns the default settings.
func DefaultConfig() Config {
	return Config{
		BrokerErrorsMaxRetryCount: 5,
		RedeliveryDelayAfterError: 250 * time.Millisecond,
		PublishingEnabled:         true,
	}
}

// Dispatcher publishes events through a broker.
type Dispatcher struct {
	broker  broker.Broker
	missing store.MissingEventStore
	cfg     Config

	publishing atomic.Bool

	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration)
	logger zerolog.Logger
}

// New returns a Dispatcher.
func New(b broker.Broker, missing store.MissingEventStore, cfg Config) *Dispatcher {
	d := &Dispatcher{
		broker:  b,
		missing: missing,
		cfg:     cfg,
		now:     time.Now,
		sleep:   wait.Sleep,
		logger:  logging.WithComponent("dispatcher"),
	}
	d.publishing.Store(cfg.PublishingEnabled)
	return d
}

// SetPublishingEnabled switches publishing on or off at runtime. While off,
// every publish is skipped and counts as delivered.
func (d *Dispatcher) SetPublishingEnabled(enabled bool) {
	if d.publishing.Swap(enabled) != enabled {
		d.logger.Warn().Bool("publishing_enabled", enabled).Msg("publishing switch changed")
	}
}

// PublishingEnabled reports the publishing switch.
func (d *Dispatcher) PublishingEnabled() bool {
	return d.publishing.Load()
}

// Dispatch publishes a freshly polled event. On any publish failure a
// missing event flagged with ExceptionThrown is inserted. Only the error of
// that insert is returned.
func (d *Dispatcher) Dispatch(ctx context.Context, event models.OutboxEvent) error {
	err := d.publish(ctx, PathOutbox, event)
	if err == nil {
		return nil
	}

	logging.Ctx(ctx).Error().Err(err).
		Int64("event_id", event.ID).
		Str("topic", event.Topic).
		Str("kind", broker.KindOf(err).String()).
		Msg("publish failed, moving event to missing backlog")

	missing := event.ToMissingEvent(d.now())
	missing.ExceptionThrown = true
	if insertErr := d.missing.Insert(ctx, missing); insertErr != nil {
		return fmt.Errorf("record failed dispatch of event %d: %w", event.ID, insertErr)
	}
	return nil
}

// DispatchMissing republishes a backlog event whose outbox row is now
// visible and returns the updated pair. ExceptionThrown is false only after a
// successful publish; failures past the broker retry cap are flagged without
// a write. Delivery failures and other failures below the broker
// retry cap bump RetryCount and persist it; delivery failures also wait the
// redelivery delay. Only the persistence error of that update is returned.
func (d *Dispatcher) DispatchMissing(ctx context.Context, mapped models.MappedMissingEvent) (models.MappedMissingEvent, error) {
	err := d.publish(ctx, PathRecovery, mapped.OutboxEvent)
	if err == nil {
		mapped.MissingEvent.ExceptionThrown = false
		return mapped, nil
	}

	kind := broker.KindOf(err)
	log := logging.Ctx(ctx)
	log.Error().Err(err).
		Int64("event_id", mapped.OutboxEvent.ID).
		Int("retry_count", mapped.MissingEvent.RetryCount).
		Str("kind", kind.String()).
		Msg("republish of missing event failed")

	// A failed publish is never reported as delivered, even past the cap.
	mapped.MissingEvent.ExceptionThrown = true
	if kind == broker.KindUnavailable {
		return mapped, nil
	}
	if !mapped.MissingEvent.IsRetryCountLessThan(d.cfg.BrokerErrorsMaxRetryCount) {
		return mapped, nil
	}

	mapped.MissingEvent.RetryCount++
	if updateErr := d.missing.UpdateRetryAndException(ctx, mapped.MissingEvent); updateErr != nil {
		return mapped, fmt.Errorf("record failed republish of event %d: %w", mapped.MissingEvent.ID, updateErr)
	}

	if kind == broker.KindDeliveryFailed {
		d.sleep(ctx, d.cfg.RedeliveryDelayAfterError)
	}
	return mapped, nil
}

func (d *Dispatcher) publish(ctx context.Context, path string, event models.OutboxEvent) error {
	start := time.Now()
	if !d.publishing.Load() {
		logging.Ctx(ctx).Debug().Int64("event_id", event.ID).Msg("publishing disabled, skipping event")
		metrics.RecordPublish(path, "skipped", time.Since(start))
		return nil
	}

	msg, err := broker.MessageFromEvent(event)
	if err == nil {
		err = d.broker.Publish(ctx, msg)
	}
	if err != nil {
		err = broker.Classify(event.Topic, err)
		metrics.RecordPublish(path, broker.KindOf(err).String(), time.Since(start))
		return err
	}

	metrics.RecordPublish(path, "ok", time.Since(start))
	logging.Ctx(ctx).Debug().Int64("event_id", event.ID).Str("topic", event.Topic).Msg("event published")
	return nil
}
