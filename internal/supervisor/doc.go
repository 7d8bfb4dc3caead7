// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

/*
Package supervisor runs the publisher's long-lived services under a suture v4
tree.

	RootSupervisor ("outbox-publisher")
	├── LeadershipSupervisor ("leadership")
	│   └── LeadershipService (when leadership is enabled)
	├── PipelineSupervisor ("pipelines")
	│   ├── PipelineService "outbox"
	│   ├── PipelineService "recovery"
	└── APISupervisor ("api")
	    └── HTTPServerService (when the ops server is enabled)

A panicking or failing pipeline is restarted with backoff without touching the
lock holder or the ops endpoints. Supervisor events are logged through
sutureslog into the zerolog-backed slog handler from internal/logging.

Shutdown is driven by cancelling the context passed to Serve. Services get
ShutdownTimeout to return; UnstoppedServiceReport names any that did not.
*/
package supervisor
