// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/outboxpublisher/internal/api"
	"github.com/tomtom215/outboxpublisher/internal/config"
	"github.com/tomtom215/outboxpublisher/internal/dispatch"
	"github.com/tomtom215/outboxpublisher/internal/logging"
	"github.com/tomtom215/outboxpublisher/internal/pipeline"
	"github.com/tomtom215/outboxpublisher/internal/store"
	"github.com/tomtom215/outboxpublisher/internal/supervisor"
	"github.com/tomtom215/outboxpublisher/internal/supervisor/services"
)

// app owns every long-lived component. Close releases them in reverse
// start order once the supervisor tree has stopped.
type app struct {
	cfg        *config.Config
	stores     store.Stores
	broker     *brokerComponents
	leadership *leadership
	dispatcher *dispatch.Dispatcher
	runners    []*pipeline.Runner
	tree       *supervisor.SupervisorTree
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	var err error
	cfg := a.cfg

	if a.stores, err = openDatastore(ctx, cfg.Datastore); err != nil {
		return err
	}
	logging.Info().Str("type", cfg.Datastore.Type).Msg("Datastore ready")

	if a.broker, err = startBroker(ctx, cfg.NATS); err != nil {
		return err
	}

	if a.leadership, err = newLeadership(ctx, cfg, a.broker); err != nil {
		return err
	}

	a.dispatcher = dispatch.New(a.broker.publisher, a.stores.Missing, dispatcherConfig(cfg))
	a.runners = newRunners(cfg, a.stores, a.dispatcher, a.leadership.elector)

	a.tree, err = a.buildTree()
	return err
}

func (a *app) buildTree() (*supervisor.SupervisorTree, error) {
	cfg := a.cfg
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("create supervisor tree: %w", err)
	}

	policy := tree.Config()
	logging.Debug().
		Float64("failure_threshold", policy.FailureThreshold).
		Dur("failure_backoff", policy.FailureBackoff).
		Dur("shutdown_timeout", policy.ShutdownTimeout).
		Msg("Supervisor restart policy")

	if a.leadership.coordinator != nil {
		tree.AddLeadershipService(services.NewLeadershipService(a.leadership.coordinator))
	}
	for _, r := range a.runners {
		tree.AddPipelineService(services.NewPipelineService(r))
		logging.Info().Str("pipeline", r.Name()).Msg("Pipeline added to supervisor tree")
	}

	if cfg.Server.Enabled {
		server := &http.Server{
			Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
			Handler:           api.NewRouter(api.NewHandler(a.apiDeps()), routerConfig(cfg.Server)),
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
			IdleTimeout:       60 * time.Second,
		}
		tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
		logging.Info().Str("addr", server.Addr).Msg("Ops HTTP server added to supervisor tree")
	}
	return tree, nil
}

func (a *app) apiDeps() api.Deps {
	deps := api.Deps{
		Leader:     a.leadership.elector,
		Datastore:  a.stores.Pinger,
		Broker:     a.broker.publisher,
		Publishing: a.dispatcher,
	}
	for _, r := range a.runners {
		deps.Pipelines = append(deps.Pipelines, r)
	}
	return deps
}

// reload applies the hot-reloadable settings from the config file.
func (a *app) reload() {
	next, err := config.LoadWithKoanf()
	if err != nil {
		logging.Warn().Err(err).Msg("Config reload rejected, keeping current settings")
		return
	}
	a.applyReload(next)
}

// applyReload only acts on values that differ from the last loaded config,
// so a switch flipped through the API survives unrelated file edits.
func (a *app) applyReload(next *config.Config) {
	if next.Publishing.Enabled != a.cfg.Publishing.Enabled {
		a.cfg.Publishing.Enabled = next.Publishing.Enabled
		a.dispatcher.SetPublishingEnabled(next.Publishing.Enabled)
		logging.Warn().Bool("enabled", next.Publishing.Enabled).Msg("Publishing switch changed by config reload")
	}
	if next.Logging.Level != a.cfg.Logging.Level {
		logging.SetLevelString(next.Logging.Level)
		a.cfg.Logging.Level = next.Logging.Level
		logging.Info().Str("level", next.Logging.Level).Msg("Log level changed by config reload")
	}
}

// Close releases resources. Safe on a partially built app.
func (a *app) Close() {
	if a.leadership != nil {
		if err := a.leadership.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing lock store")
		}
	}
	if a.broker != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		a.broker.Shutdown(ctx)
		cancel()
	}
	if a.stores.Close != nil {
		if err := a.stores.Close(); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Error closing datastore")
		}
	}
}
