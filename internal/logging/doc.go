// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

// Package logging provides the zerolog-based global logger for the outbox
// relay together with adapters for libraries that bring their own logging
// interface.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//
//	logging.Info().Int64("offset", 42).Msg("Offset advanced")
//	logging.Err(err).Msg("Cycle failed")
//
//	ctx = logging.ContextWithCycle(ctx, "outbox")
//	logging.Ctx(ctx).Debug().Int("events", n).Msg("Batch fetched")
//
// # Adapters
//
//   - SlogHandler: log/slog handler used by sutureslog.
//   - WatermillLogger: watermill.LoggerAdapter used by the NATS publisher.
//
// Always terminate log chains with .Msg() or .Send().
package logging
