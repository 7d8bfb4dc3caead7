// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	cycleIDKey  contextKey = "cycle_id"
	pipelineKey contextKey = "pipeline"
	requestKey  contextKey = "request_id"
)

// GenerateCycleID creates a short identifier for one pipeline cycle.
func GenerateCycleID() string {
	return uuid.New().String()[:8]
}

// ContextWithCycle returns a context tagged with the pipeline name and a new
// cycle ID. Log lines emitted through Ctx carry both fields.
func ContextWithCycle(ctx context.Context, pipeline string) context.Context {
	ctx = context.WithValue(ctx, pipelineKey, pipeline)
	return context.WithValue(ctx, cycleIDKey, GenerateCycleID())
}

// CycleIDFromContext returns the cycle ID, or an empty string.
func CycleIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(cycleIDKey).(string); ok {
		return id
	}
	return ""
}

// PipelineFromContext returns the pipeline name, or an empty string.
func PipelineFromContext(ctx context.Context) string {
	if p, ok := ctx.Value(pipelineKey).(string); ok {
		return p
	}
	return ""
}

// ContextWithRequestID tags ctx with an ops HTTP request ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestKey, id)
}

// RequestIDFromContext returns the request ID, or an empty string.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger enriched with the pipeline, cycle_id and
// request_id fields found in ctx.
//
//	logging.Ctx(ctx).Info().Int("events", n).Msg("Batch dispatched")
func Ctx(ctx context.Context) *zerolog.Logger {
	logCtx := Logger().With()
	if p := PipelineFromContext(ctx); p != "" {
		logCtx = logCtx.Str("pipeline", p)
	}
	if id := CycleIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("cycle_id", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		logCtx = logCtx.Str("request_id", id)
	}
	l := logCtx.Logger()
	return &l
}
