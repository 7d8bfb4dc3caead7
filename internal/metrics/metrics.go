// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the outbox relay:
// - Datastore operation latency and errors
// - Pipeline cycle throughput
// - Publish outcomes per failure class
// - Missing event recovery and escalation
// - Circuit breaker and leadership state

var (
	// Datastore Metrics
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbox_store_operation_duration_seconds",
			Help:    "Duration of datastore operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_store_operation_errors_total",
			Help: "Total number of failed datastore operations",
		},
		[]string{"operation", "table"},
	)

	StoreWriteRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_store_write_retries_total",
			Help: "Total number of datastore write retries",
		},
		[]string{"operation"},
	)

	// API Metrics
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbox_api_request_duration_seconds",
			Help:    "Duration of ops API requests in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1},
		},
		[]string{"method", "endpoint"},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_api_requests_total",
			Help: "Total number of ops API requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_api_active_requests",
			Help: "Number of ops API requests currently in flight",
		},
	)

	// Pipeline Metrics
	PipelineCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "outbox_pipeline_cycle_duration_seconds",
			Help:    "Duration of a pipeline cycle in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"pipeline"},
	)

	PipelineCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_pipeline_cycles_total",
			Help: "Total number of pipeline cycles by result",
		},
		[]string{"pipeline", "result"}, // result: "success", "persistence_error", "error", "skipped"
	)

	OutboxOffset = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_offset",
			Help: "Latest outbox event id committed as the offset",
		},
	)

	OutboxBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbox_batch_size",
			Help:    "Number of events fetched per outbox cycle",
			Buckets: []float64{1, 10, 50, 100, 500, 1000, 5000},
		},
	)

	GapsDetected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_gaps_detected_total",
			Help: "Total number of outbox ids recorded as missing by gap detection",
		},
	)

	// Publish Metrics
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Total publish attempts by path and outcome",
		},
		[]string{"path", "result"}, // path: "outbox", "missing"; result: "success", "skipped", "unavailable", "delivery_failed", "other"
	)

	PublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "outbox_publish_duration_seconds",
			Help:    "Duration of broker publish calls in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5},
		},
	)

	// Recovery Metrics
	MissingEventsRecovered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_missing_events_recovered_total",
			Help: "Total number of missing events republished and removed from the backlog",
		},
	)

	MissingEventsEscalated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_missing_events_escalated_total",
			Help: "Total number of missing events moved to the exceeded table",
		},
		[]string{"reason"}, // reason: "broker_errors", "unmatched"
	)

	MissingEventsRetried = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbox_missing_events_unmatched_retries_total",
			Help: "Total number of retry count increments for ids still absent from the outbox",
		},
	)

	MissingBacklogSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_missing_backlog_batch_size",
			Help: "Number of missing events fetched in the last recovery cycle",
		},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_recorded_failures",
			Help: "Current number of failures recorded since the last reset",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	// Leadership Metrics
	LeaderStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "outbox_leader",
			Help: "Whether this instance currently holds the leader lock (1) or not (0)",
		},
	)

	LeadershipTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_leadership_transitions_total",
			Help: "Total number of leadership gains and losses",
		},
		[]string{"to"}, // to: "leader", "follower"
	)

	LockOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_lock_operations_total",
			Help: "Total number of leader lock operations by result",
		},
		[]string{"operation", "result"}, // operation: "take", "extend", "release"; result: "acquired", "denied", "error"
	)
)

// RecordStoreOperation records a datastore operation metric
func RecordStoreOperation(operation, table string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(operation, table).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordPipelineCycle records the duration and result of one pipeline cycle
func RecordPipelineCycle(pipeline, result string, duration time.Duration) {
	PipelineCycles.WithLabelValues(pipeline, result).Inc()
	PipelineCycleDuration.WithLabelValues(pipeline).Observe(duration.Seconds())
}

// RecordPublish records a publish attempt
func RecordPublish(path, result string, duration time.Duration) {
	EventsPublished.WithLabelValues(path, result).Inc()
	if duration > 0 {
		PublishDuration.Observe(duration.Seconds())
	}
}

// RecordOutboxBatch records the size of a fetched batch and the gaps found in it
func RecordOutboxBatch(size, gaps int) {
	OutboxBatchSize.Observe(float64(size))
	if gaps > 0 {
		GapsDetected.Add(float64(gaps))
	}
}

// SetLeader updates the leader gauge
func SetLeader(leader bool) {
	if leader {
		LeaderStatus.Set(1)
		LeadershipTransitions.WithLabelValues("leader").Inc()
		return
	}
	LeaderStatus.Set(0)
	LeadershipTransitions.WithLabelValues("follower").Inc()
}

// RecordLockOperation records a leader lock operation
func RecordLockOperation(operation string, acquired bool, err error) {
	result := "denied"
	switch {
	case err != nil:
		result = "error"
	case acquired:
		result = "acquired"
	}
	LockOperations.WithLabelValues(operation, result).Inc()
}
