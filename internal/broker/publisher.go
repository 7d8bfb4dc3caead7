// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/outboxpublisher/internal/logging"
)

// Broker publishes one message. Implementations return *Error on failure.
type Broker interface {
	Publish(ctx context.Context, msg Message) error
}

// Publisher publishes to NATS JetStream through Watermill.
type Publisher struct {
	conn      *natsgo.Conn
	publisher *wmNats.Publisher
	breaker   *gobreaker.CircuitBreaker[any]
	limiter   *rate.Limiter
	logger    zerolog.Logger

	mu     sync.RWMutex
	closed bool
}

var _ Broker = (*Publisher)(nil)

// NewPublisher connects to cfg.URL and prepares a JetStream publisher.
// The connection keeps retrying in the background when the server is down.
func NewPublisher(cfg Config) (*Publisher, error) {
	logger := logging.WithComponent("broker")

	opts := []natsgo.Option{
		natsgo.Name(cfg.ClientName),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		natsgo.ErrorHandler(func(_ *natsgo.Conn, _ *natsgo.Subscription, err error) {
			logger.Error().Err(err).Msg("NATS async error")
		}),
	}
	if cfg.ConnectTimeout > 0 {
		opts = append(opts, natsgo.Timeout(cfg.ConnectTimeout))
	}

	conn, err := natsgo.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect NATS %s: %w", cfg.URL, err)
	}

	pubOpts := []natsgo.PubOpt{
		natsgo.RetryAttempts(cfg.PublishRetryAttempts),
		natsgo.RetryWait(cfg.PublishRetryWait),
	}
	if cfg.PublishTimeout > 0 {
		pubOpts = append(pubOpts, natsgo.AckWait(cfg.PublishTimeout))
	}

	wmConfig := wmNats.PublisherPublishConfig{
		Marshaler:         &wmNats.NATSMarshaler{},
		SubjectCalculator: wmNats.DefaultSubjectCalculator,
		JetStream: wmNats.JetStreamConfig{
			Disabled:       false,
			AutoProvision:  false, // EnsureStream owns the stream
			TrackMsgId:     true,
			PublishOptions: pubOpts,
		},
	}

	pub, err := wmNats.NewPublisherWithNatsConn(conn, wmConfig, logging.NewWatermillLogger("broker"))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	p := &Publisher{
		conn:      conn,
		publisher: pub,
		logger:    logger,
	}
	if cfg.Breaker.Enabled {
		p.breaker = newBreaker(cfg.Breaker, logger)
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return p, nil
}

func newBreaker(cfg BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker[any] {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = 1
	}
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "nats-publisher",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || KindOf(err) != KindUnavailable
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("broker circuit breaker state change")
		},
	})
}

// Publish sends msg and blocks until JetStream acknowledges it.
func (p *Publisher) Publish(ctx context.Context, msg Message) error {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()
	if closed {
		return NewError(KindUnavailable, msg.Topic, ErrPublisherClosed)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return Classify(msg.Topic, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return Classify(msg.Topic, err)
	}

	wm := p.toWatermill(ctx, msg)
	start := time.Now()

	var err error
	if p.breaker != nil {
		_, err = p.breaker.Execute(func() (any, error) {
			return nil, Classify(msg.Topic, p.publisher.Publish(msg.Topic, wm))
		})
	} else {
		err = p.publisher.Publish(msg.Topic, wm)
	}
	if err != nil {
		err = Classify(msg.Topic, err)
		p.logger.Debug().Err(err).
			Int64("event_id", msg.ID).
			Str("topic", msg.Topic).
			Str("kind", KindOf(err).String()).
			Msg("publish failed")
		return err
	}

	p.logger.Trace().
		Int64("event_id", msg.ID).
		Str("topic", msg.Topic).
		Dur("duration", time.Since(start)).
		Msg("published")
	return nil
}

func (p *Publisher) toWatermill(ctx context.Context, msg Message) *message.Message {
	id := msg.MessageID()
	wm := message.NewMessage(id, []byte(msg.Value))
	for k, v := range msg.Headers {
		wm.Metadata.Set(k, v)
	}
	if msg.Key != "" {
		wm.Metadata.Set(PartitionKeyHeader, msg.Key)
	}
	wm.Metadata.Set(natsgo.MsgIdHdr, id)
	wm.SetContext(ctx)
	return wm
}

// JetStream returns a JetStream handle on the publisher's connection for
// stream provisioning and KV access.
func (p *Publisher) JetStream() (jetstream.JetStream, error) {
	return jetstream.New(p.conn)
}

// IsConnected reports whether the NATS connection is up.
func (p *Publisher) IsConnected() bool {
	return p.conn != nil && p.conn.IsConnected()
}

// BreakerState returns the client-side breaker state, or "disabled".
func (p *Publisher) BreakerState() string {
	if p.breaker == nil {
		return "disabled"
	}
	return p.breaker.State().String()
}

// Close closes the publisher and its connection. Safe to call twice.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true

	err := p.publisher.Close()
	p.conn.Close()
	if err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}
	return nil
}
