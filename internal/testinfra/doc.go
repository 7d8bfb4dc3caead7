// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

// Package testinfra starts throwaway databases with testcontainers-go for
// the integration tests (build tag "integration").
//
//	func TestPostgresStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    pg, err := testinfra.NewPostgresContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer testinfra.CleanupContainer(t, ctx, pg)
//
//	    st, err := sqlstore.Open(ctx, sqlstore.Config{Dialect: "postgres", DSN: pg.DSN, AutoMigrate: true})
//	    ...
//	}
//
// Run with:
//
//	go test -tags integration ./...
//
// Tests skip when Docker is unavailable.
package testinfra
