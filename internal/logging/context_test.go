// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestContextWithCycle(t *testing.T) {
	ctx := ContextWithCycle(context.Background(), "outbox")

	if got := PipelineFromContext(ctx); got != "outbox" {
		t.Errorf("PipelineFromContext() = %q, want outbox", got)
	}
	id := CycleIDFromContext(ctx)
	if len(id) != 8 {
		t.Errorf("CycleIDFromContext() = %q, want 8 characters", id)
	}

	next := ContextWithCycle(ctx, "outbox")
	if CycleIDFromContext(next) == id {
		t.Error("expected a fresh cycle id for each cycle")
	}
}

func TestCtxAddsFields(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithCycle(context.Background(), "recovery")
	Ctx(ctx).Info().Msg("cycle complete")

	out := buf.String()
	if !strings.Contains(out, `"pipeline":"recovery"`) {
		t.Errorf("expected pipeline field, got: %s", out)
	}
	if !strings.Contains(out, `"cycle_id":"`+CycleIDFromContext(ctx)+`"`) {
		t.Errorf("expected cycle_id field, got: %s", out)
	}
}

func TestCtxWithoutFields(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	Ctx(context.Background()).Info().Msg("plain")

	if strings.Contains(buf.String(), "cycle_id") {
		t.Errorf("unexpected cycle_id in output: %s", buf.String())
	}
}

func TestCtxAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() { Init(DefaultConfig()) })

	ctx := ContextWithRequestID(context.Background(), "req-42")
	if got := RequestIDFromContext(ctx); got != "req-42" {
		t.Fatalf("RequestIDFromContext() = %q", got)
	}
	Ctx(ctx).Info().Msg("ready probe")

	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Errorf("expected request_id field, got: %s", buf.String())
	}
}
