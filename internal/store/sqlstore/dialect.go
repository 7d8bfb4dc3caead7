// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package sqlstore

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect names accepted by Open.
const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectOracle   = "oracle"
	DialectDuckDB   = "duckdb"
)

// maxInListSize bounds the number of placeholders in one IN list. Oracle
// rejects more than 1000 expressions.
const maxInListSize = 1000

type dialect struct {
	name       string
	driverName string
	// placeholder returns the bind marker for the 1-based parameter n.
	placeholder func(n int) string
	quote       func(ident string) string
	// limit renders the row limiting clause appended to a SELECT.
	limit     func(n int) string
	boolAsInt bool
	// fromDual is appended to a FROM-less SELECT.
	fromDual string
}

var dialects = map[string]dialect{
	DialectPostgres: {
		name:        DialectPostgres,
		driverName:  "pgx",
		placeholder: func(n int) string { return "$" + strconv.Itoa(n) },
		quote:       doubleQuote,
		limit:       limitClause,
	},
	DialectMySQL: {
		name:        DialectMySQL,
		driverName:  "mysql",
		placeholder: func(int) string { return "?" },
		quote:       func(ident string) string { return "`" + ident + "`" },
		limit:       limitClause,
		fromDual:    " FROM DUAL",
	},
	DialectOracle: {
		name:        DialectOracle,
		driverName:  "oracle",
		placeholder: func(n int) string { return ":" + strconv.Itoa(n) },
		quote:       func(ident string) string { return `"` + strings.ToUpper(ident) + `"` },
		limit:       func(n int) string { return fmt.Sprintf(" FETCH FIRST %d ROWS ONLY", n) },
		boolAsInt:   true,
		fromDual:    " FROM DUAL",
	},
	DialectDuckDB: {
		name:        DialectDuckDB,
		driverName:  "duckdb",
		placeholder: func(int) string { return "?" },
		quote:       doubleQuote,
		limit:       limitClause,
	},
}

func lookupDialect(name string) (dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return dialect{}, fmt.Errorf("%w: %q", ErrUnsupportedDialect, name)
	}
	return d, nil
}

func doubleQuote(ident string) string {
	return `"` + ident + `"`
}

func limitClause(n int) string {
	return " LIMIT " + strconv.Itoa(n)
}

// placeholders renders count bind markers starting at parameter start.
func (d dialect) placeholders(start, count int) string {
	var b strings.Builder
	for i := 0; i < count; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(d.placeholder(start + i))
	}
	return b.String()
}

// boolArg converts a Go bool into the bind value the dialect stores.
func (d dialect) boolArg(v bool) any {
	if !d.boolAsInt {
		return v
	}
	if v {
		return 1
	}
	return 0
}

// chunkIDs splits ids into slices of at most size elements.
func chunkIDs(ids []int64, size int) [][]int64 {
	if len(ids) == 0 {
		return nil
	}
	chunks := make([][]int64, 0, (len(ids)+size-1)/size)
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		chunks = append(chunks, ids[start:end])
	}
	return chunks
}

func idArgs(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
