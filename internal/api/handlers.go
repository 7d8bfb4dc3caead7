// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/validation"
)

// LeaderStatus is satisfied by leader.Elector implementations.
type LeaderStatus interface {
	IsLeader() bool
}

// Pinger is satisfied by the datastore.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BrokerStatus is satisfied by *broker.Publisher.
type BrokerStatus interface {
	IsConnected() bool
	BreakerState() string
}

// PipelineStatus is satisfied by *pipeline.Runner.
type PipelineStatus interface {
	Name() string
	BreakerState() string
}

// PublishingSwitch is satisfied by *dispatch.Dispatcher.
type PublishingSwitch interface {
	PublishingEnabled() bool
	SetPublishingEnabled(enabled bool)
}

// Deps are the components the handlers report on. Nil members are reported
// as absent rather than failing.
type Deps struct {
	Leader     LeaderStatus
	Datastore  Pinger
	Broker     BrokerStatus
	Pipelines  []PipelineStatus
	Publishing PublishingSwitch
	// PingTimeout bounds each readiness dependency check.
	PingTimeout time.Duration
}

// Handler serves the ops endpoints.
type Handler struct {
	deps      Deps
	startTime time.Time
}

// NewHandler returns a Handler for deps.
func NewHandler(deps Deps) *Handler {
	if deps.PingTimeout <= 0 {
		deps.PingTimeout = 2 * time.Second
	}
	return &Handler{deps: deps, startTime: time.Now()}
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status string  `json:"status"`
	Uptime float64 `json:"uptime_seconds"`
}

// Health is the liveness probe.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, &HealthResponse{
		Status: "ok",
		Uptime: time.Since(h.startTime).Seconds(),
	})
}

// ReadyResponse is the /ready body.
type ReadyResponse struct {
	Ready     bool   `json:"ready"`
	Leader    bool   `json:"leader"`
	Datastore string `json:"datastore"`
	Broker    string `json:"broker"`
}

// Ready is the readiness probe. It returns 503 when the datastore is
// unreachable or the broker connection is down.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	resp := h.readiness(r.Context())
	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	respondJSON(w, status, resp)
}

func (h *Handler) readiness(ctx context.Context) *ReadyResponse {
	resp := &ReadyResponse{Ready: true, Datastore: "absent", Broker: "absent"}
	if h.deps.Leader != nil {
		resp.Leader = h.deps.Leader.IsLeader()
	}

	if h.deps.Datastore != nil {
		pingCtx, cancel := context.WithTimeout(ctx, h.deps.PingTimeout)
		err := h.deps.Datastore.Ping(pingCtx)
		cancel()
		if err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Readiness: datastore ping failed")
			resp.Datastore = "unreachable"
			resp.Ready = false
		} else {
			resp.Datastore = "ok"
		}
	}

	if h.deps.Broker != nil {
		if h.deps.Broker.IsConnected() {
			resp.Broker = "ok"
		} else {
			resp.Broker = "disconnected"
			resp.Ready = false
		}
	}
	return resp
}

// StatusResponse is the /api/v1/status payload.
type StatusResponse struct {
	Ready             bool              `json:"ready"`
	Leader            bool              `json:"leader"`
	PublishingEnabled bool              `json:"publishing_enabled"`
	Datastore         string            `json:"datastore"`
	Broker            string            `json:"broker"`
	BrokerBreaker     string            `json:"broker_breaker,omitempty"`
	Pipelines         map[string]string `json:"pipelines"`
	Uptime            float64           `json:"uptime_seconds"`
}

// Status reports every dependency plus per-pipeline datastore breaker state.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	ready := h.readiness(r.Context())
	resp := &StatusResponse{
		Ready:     ready.Ready,
		Leader:    ready.Leader,
		Datastore: ready.Datastore,
		Broker:    ready.Broker,
		Pipelines: make(map[string]string, len(h.deps.Pipelines)),
		Uptime:    time.Since(h.startTime).Seconds(),
	}
	if h.deps.Broker != nil {
		resp.BrokerBreaker = h.deps.Broker.BreakerState()
	}
	if h.deps.Publishing != nil {
		resp.PublishingEnabled = h.deps.Publishing.PublishingEnabled()
	}
	for _, p := range h.deps.Pipelines {
		resp.Pipelines[p.Name()] = p.BreakerState()
	}
	respondData(w, http.StatusOK, resp)
}

// PublishingRequest is the PUT /api/v1/publishing body.
type PublishingRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

// PublishingResponse reports the switch.
type PublishingResponse struct {
	Enabled bool `json:"enabled"`
}

// GetPublishing returns the publishing switch.
func (h *Handler) GetPublishing(w http.ResponseWriter, _ *http.Request) {
	if h.deps.Publishing == nil {
		respondError(w, http.StatusNotFound, "NOT_CONFIGURED", "publishing switch not available")
		return
	}
	respondData(w, http.StatusOK, &PublishingResponse{Enabled: h.deps.Publishing.PublishingEnabled()})
}

// SetPublishing flips the publishing switch. While disabled the pipelines
// keep consuming and advancing the offset without reaching the broker.
func (h *Handler) SetPublishing(w http.ResponseWriter, r *http.Request) {
	if h.deps.Publishing == nil {
		respondError(w, http.StatusNotFound, "NOT_CONFIGURED", "publishing switch not available")
		return
	}

	var req PublishingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "request body must be JSON")
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	prev := h.deps.Publishing.PublishingEnabled()
	h.deps.Publishing.SetPublishingEnabled(*req.Enabled)
	if prev != *req.Enabled {
		logging.Ctx(r.Context()).Warn().
			Bool("enabled", *req.Enabled).
			Msg("Publishing switch changed via ops API")
	}
	respondData(w, http.StatusOK, &PublishingResponse{Enabled: *req.Enabled})
}
