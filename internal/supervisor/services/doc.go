// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

// Package services adapts the publisher's blocking components to
// suture.Service so the supervisor tree can restart them.
//
// Each wrapper takes a narrow interface instead of the concrete type, which
// keeps this package free of imports on the pipeline and leader packages and
// lets the tests drive the wrappers with fakes.
package services
