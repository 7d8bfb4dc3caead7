// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package sqlstore

import (
	"fmt"
	"strconv"
	"time"
)

// sqlBool scans boolean columns stored as BOOLEAN, NUMBER(1) or TINYINT.
type sqlBool bool

// Scan implements sql.Scanner.
func (b *sqlBool) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*b = false
	case bool:
		*b = sqlBool(v)
	case int64:
		*b = v != 0
	case int32:
		*b = v != 0
	case float64:
		*b = v != 0
	case []byte:
		return b.parse(string(v))
	case string:
		return b.parse(v)
	default:
		return fmt.Errorf("sqlstore: cannot scan %T into bool", src)
	}
	return nil
}

func (b *sqlBool) parse(s string) error {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*b = n != 0
		return nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("sqlstore: cannot parse %q as bool: %w", s, err)
	}
	*b = sqlBool(v)
	return nil
}

// sqlInt scans integer columns that some drivers return as decimals or text.
type sqlInt int64

// Scan implements sql.Scanner.
func (n *sqlInt) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*n = 0
	case int64:
		*n = sqlInt(v)
	case int32:
		*n = sqlInt(v)
	case float64:
		*n = sqlInt(v)
	case []byte:
		return n.parse(string(v))
	case string:
		return n.parse(v)
	default:
		return fmt.Errorf("sqlstore: cannot scan %T into int", src)
	}
	return nil
}

func (n *sqlInt) parse(s string) error {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("sqlstore: cannot parse %q as int: %w", s, err)
	}
	*n = sqlInt(v)
	return nil
}

// utc normalises timestamps before they are written.
func utc(t time.Time) time.Time {
	return t.UTC()
}
