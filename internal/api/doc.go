// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

/*
Package api serves the publisher's ops endpoints with chi.

	GET  /health                  liveness, always 200 while the process serves
	GET  /ready                   200 when the instance can publish, else 503
	GET  /metrics                 Prometheus exposition
	GET  /api/v1/status           leader, pipeline breakers, broker and datastore
	GET  /api/v1/publishing       current publishing switch
	PUT  /api/v1/publishing       flip the publishing switch at runtime

Readiness requires a reachable datastore and a connected broker. A follower
(not holding the leader lock) is ready: it is healthy and waiting. The
/api/v1 routes are rate limited per client IP with httprate.
*/
package api
