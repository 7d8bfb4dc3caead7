// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/tomtom215/outboxpublisher/internal/config"
	"github.com/tomtom215/outboxpublisher/internal/logging"
)

func main() {
	seed := flag.Int("seed", 0, "append N demo events to the outbox before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})

	logging.Info().
		Str("datastore", cfg.Datastore.Type).
		Str("nats_url", cfg.NATS.URL).
		Bool("embedded_nats", cfg.NATS.EmbeddedServer).
		Bool("leadership", cfg.Leadership.Enabled).
		Str("lock_backend", cfg.Lock.Backend).
		Bool("publishing", cfg.Publishing.Enabled).
		Msg("Starting outbox publisher")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize publisher")
	}
	defer a.Close()

	if *seed > 0 {
		if err := seedOutbox(ctx, a.stores.Writer, *seed); err != nil {
			logging.Fatal().Err(err).Int("count", *seed).Msg("Failed to seed outbox")
		}
		logging.Info().Int("count", *seed).Msg("Seeded demo outbox events")
	}

	if path := config.FindConfigFile(); path != "" {
		if err := config.WatchConfigFile(path, a.reload); err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Config hot reload unavailable")
		} else {
			logging.Info().Str("path", path).Msg("Watching config file for publishing and log level changes")
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := a.tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := a.tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Outbox publisher stopped")
}
