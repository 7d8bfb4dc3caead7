// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package store

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestWrap(t *testing.T) {
	t.Parallel()

	if Wrap("get_offset", "outbox_offset", nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}

	base := errors.New("connection refused")
	err := Wrap("get_offset", "outbox_offset", base)

	if !IsPersistence(err) {
		t.Error("wrapped error should be a persistence error")
	}
	if !errors.Is(err, base) {
		t.Error("wrapped error should unwrap to the backend error")
	}
	if got := err.Error(); got != "store get_offset on outbox_offset: connection refused" {
		t.Errorf("Error() = %q", got)
	}

	again := Wrap("outer", "", fmt.Errorf("cycle: %w", err))
	var se *Error
	if !errors.As(again, &se) || se.Op != "get_offset" {
		t.Errorf("Wrap should not double wrap, got %v", again)
	}
}

func TestIsPersistence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain", err: errors.New("broker down"), want: false},
		{name: "context", err: context.Canceled, want: false},
		{name: "store error", err: &Error{Op: "insert", Err: errors.New("x")}, want: true},
		{name: "joined", err: errors.Join(errors.New("a"), Wrap("delete", "", errors.New("b"))), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsPersistence(tt.err); got != tt.want {
				t.Errorf("IsPersistence(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
