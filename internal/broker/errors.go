// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package broker

import (
	"context"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"
)

// Kind classifies a publish failure.
type Kind int

const (
	// KindOther is any failure that is not a transport or broker rejection.
	KindOther Kind = iota
	// KindUnavailable means the broker could not be reached.
	KindUnavailable
	// KindDeliveryFailed means the broker rejected the message.
	KindDeliveryFailed
)

// String returns the metric label for the kind.
func (k Kind) String() string {
	switch k {
	case KindUnavailable:
		return "unavailable"
	case KindDeliveryFailed:
		return "delivery_failed"
	default:
		return "other"
	}
}

// ErrPublisherClosed is returned by Publish after Close.
var ErrPublisherClosed = errors.New("broker: publisher closed")

// Error is a classified publish failure.
type Error struct {
	Kind  Kind
	Topic string
	Err   error
}

func (e *Error) Error() string {
	if e.Topic == "" {
		return fmt.Sprintf("broker %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("broker %s on %s: %v", e.Kind, e.Topic, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError wraps err with an explicit kind.
func NewError(kind Kind, topic string, err error) *Error {
	return &Error{Kind: kind, Topic: topic, Err: err}
}

// KindOf returns the kind of err. Errors that were never classified are
// classified on the fly. A nil error reports KindOther.
func KindOf(err error) Kind {
	if err == nil {
		return KindOther
	}
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return classifyKind(err)
}

// Classify wraps err in an *Error for topic. Already classified errors are
// returned unchanged.
func Classify(topic string, err error) error {
	if err == nil {
		return nil
	}
	var be *Error
	if errors.As(err, &be) {
		return err
	}
	return &Error{Kind: classifyKind(err), Topic: topic, Err: err}
}

var unavailableErrors = []error{
	ErrPublisherClosed,
	natsgo.ErrNoServers,
	natsgo.ErrConnectionClosed,
	natsgo.ErrConnectionDraining,
	natsgo.ErrConnectionReconnecting,
	natsgo.ErrStaleConnection,
	natsgo.ErrTimeout,
	natsgo.ErrJetStreamNotEnabled,
	context.DeadlineExceeded,
	gobreaker.ErrOpenState,
	gobreaker.ErrTooManyRequests,
}

var deliveryErrors = []error{
	natsgo.ErrNoResponders,
	natsgo.ErrNoStreamResponse,
	natsgo.ErrMaxPayload,
	natsgo.ErrBadSubject,
}

func classifyKind(err error) Kind {
	for _, target := range unavailableErrors {
		if errors.Is(err, target) {
			return KindUnavailable
		}
	}
	for _, target := range deliveryErrors {
		if errors.Is(err, target) {
			return KindDeliveryFailed
		}
	}
	var apiErr *natsgo.APIError
	if errors.As(err, &apiErr) {
		return KindDeliveryFailed
	}
	return KindOther
}
