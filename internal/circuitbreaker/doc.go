// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

// Package circuitbreaker implements the failure-threshold breaker that guards
// each pipeline's access to the datastore.
//
// The breaker counts persistence failures reported by its pipeline. Once the
// count reaches the threshold the breaker opens for the configured duration.
// After that it grants a bounded number of half-open trial cycles; a failing
// trial re-opens it and a successful cycle resets it.
//
// Unlike a request-scoped breaker, the pipeline decides what counts as a
// success: Reset is called only after a complete cycle.
//
//	b := circuitbreaker.New("outbox", cfg)
//	if !b.Allow() {
//	    sleep(cfg.OpenWait)
//	    continue
//	}
//	if err := runCycle(); store.IsPersistence(err) {
//	    b.RecordFailure()
//	} else {
//	    b.Reset()
//	}
package circuitbreaker
