// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package store

import (
	"errors"
	"fmt"
)

// ErrPersistence is matched by every error a store backend returns.
var ErrPersistence = errors.New("persistence failure")

// ErrOffsetNotFound is logged when the offset table has no row.
var ErrOffsetNotFound = errors.New("latest offset not found")

// Error wraps a backend failure with the operation that caused it.
type Error struct {
	Op    string
	Table string
	Err   error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("store %s on %s: %v", e.Op, e.Table, e.Err)
	}
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

// Unwrap returns the backend error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports ErrPersistence as a match.
func (e *Error) Is(target error) bool {
	return target == ErrPersistence
}

// Wrap returns nil for a nil err, otherwise a *Error.
func Wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Op: op, Table: table, Err: err}
}

// IsPersistence reports whether err is a persistence failure.
func IsPersistence(err error) bool {
	return errors.Is(err, ErrPersistence)
}
