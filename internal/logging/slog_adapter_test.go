// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package logging

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestSlogHandlerLevels(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(NewTestLogger(&buf)))

	logger.Debug("hidden")
	logger.Info("service started", "service", "outbox-pipeline")
	logger.Error("service failed", "err", errors.New("boom"))

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("debug record should be filtered: %s", out)
	}
	if !strings.Contains(out, `"service":"outbox-pipeline"`) {
		t.Errorf("expected string attr, got: %s", out)
	}
	if !strings.Contains(out, `"err":"boom"`) {
		t.Errorf("expected error attr, got: %s", out)
	}
	if !strings.Contains(out, `"level":"error"`) {
		t.Errorf("expected error level, got: %s", out)
	}
}

func TestSlogHandlerAttrsAndGroups(t *testing.T) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(NewTestLogger(&buf))).
		With("supervisor", "root").
		WithGroup("restart")

	logger.Info("backoff", "count", 3, "wait", 2*time.Second, slog.Group("spec", "threshold", 5.0))

	out := buf.String()
	for _, want := range []string{
		`"supervisor":"root"`,
		`"restart.count":3`,
		`"restart.spec.threshold":5`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %s in output: %s", want, out)
		}
	}
}

func TestSlogToZerologLevel(t *testing.T) {
	tests := []struct {
		in   slog.Level
		want zerolog.Level
	}{
		{slog.LevelDebug - 4, zerolog.TraceLevel},
		{slog.LevelDebug, zerolog.DebugLevel},
		{slog.LevelInfo, zerolog.InfoLevel},
		{slog.LevelWarn, zerolog.WarnLevel},
		{slog.LevelError, zerolog.ErrorLevel},
		{slog.LevelError + 4, zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		if got := slogToZerologLevel(tt.in); got != tt.want {
			t.Errorf("slogToZerologLevel(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
