// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

/*
Package middleware holds the HTTP middleware used by the ops server.

  - RequestID: X-Request-ID propagation, tagged into the logging context
  - PrometheusMetrics: request counters and latency per chi route pattern

Both are func(http.Handler) http.Handler and plug into chi with r.Use.
*/
package middleware
