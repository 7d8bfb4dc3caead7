// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/outboxpublisher/internal/middleware"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	// RateLimitRequests per RateLimitWindow per client IP on /api/v1.
	// Zero disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// AllowPublishingToggle enables PUT /api/v1/publishing. When false the
	// route answers 403 and the switch can only change through config.
	AllowPublishingToggle bool
}

// NewRouter mounts h on a chi router.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.PrometheusMetrics)

	// Probes stay unthrottled so orchestrators never see 429.
	r.Get("/health", h.Health)
	r.Get("/ready", h.Ready)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(cfg))
		r.Get("/status", h.Status)
		r.Get("/publishing", h.GetPublishing)
		if cfg.AllowPublishingToggle {
			r.Put("/publishing", h.SetPublishing)
		} else {
			r.Put("/publishing", toggleDisabled)
		}
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "no such endpoint")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed")
	})
	return r
}

func toggleDisabled(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusForbidden, "FORBIDDEN", "publishing toggle disabled, set server.allow_publishing_toggle")
}

func rateLimit(cfg RouterConfig) func(http.Handler) http.Handler {
	if cfg.RateLimitRequests <= 0 || cfg.RateLimitWindow <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		cfg.RateLimitRequests,
		cfg.RateLimitWindow,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			respondError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests")
		}),
	)
}
