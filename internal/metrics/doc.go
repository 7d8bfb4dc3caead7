// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

/*
Package metrics provides Prometheus metrics for the outbox relay.

# Metrics Endpoint

Metrics are exposed by the ops server in Prometheus text format:

	curl http://localhost:8080/metrics

# Available Metrics

Datastore Metrics:
  - outbox_store_operation_duration_seconds (histogram) labels: operation, table
  - outbox_store_operation_errors_total (counter) labels: operation, table
  - outbox_store_write_retries_total (counter) labels: operation

Pipeline Metrics:
  - outbox_pipeline_cycle_duration_seconds (histogram) labels: pipeline
  - outbox_pipeline_cycles_total (counter) labels: pipeline, result
  - outbox_offset (gauge)
  - outbox_batch_size (histogram)
  - outbox_gaps_detected_total (counter)

Publish Metrics:
  - outbox_events_published_total (counter) labels: path, result
  - outbox_publish_duration_seconds (histogram)

Recovery Metrics:
  - outbox_missing_events_recovered_total (counter)
  - outbox_missing_events_escalated_total (counter) labels: reason
  - outbox_missing_events_unmatched_retries_total (counter)
  - outbox_missing_backlog_batch_size (gauge)

Circuit Breaker Metrics:
  - circuit_breaker_state (gauge) labels: name. Values: 0=closed, 1=half-open, 2=open
  - circuit_breaker_recorded_failures (gauge) labels: name
  - circuit_breaker_state_transitions_total (counter) labels: name, from_state, to_state
  - circuit_breaker_requests_total (counter) labels: name, result

Leadership Metrics:
  - outbox_leader (gauge)
  - outbox_leadership_transitions_total (counter) labels: to
  - outbox_lock_operations_total (counter) labels: operation, result

# Alerting Examples

	groups:
	  - name: outbox
	    rules:
	      - alert: OutboxCircuitBreakerOpen
	        expr: circuit_breaker_state == 2
	        for: 5m
	      - alert: OutboxEventsEscalated
	        expr: increase(outbox_missing_events_escalated_total[15m]) > 0
	      - alert: OutboxNoLeader
	        expr: max(outbox_leader) == 0
	        for: 2m
*/
package metrics
