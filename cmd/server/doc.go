// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

/*
Package main is the entry point of the outbox publisher.

The publisher relays rows appended to a transactional outbox table to NATS
JetStream. Two pipelines run under suture supervision:

	RootSupervisor ("outbox-publisher")
	├── LeadershipSupervisor ("leadership")
	│   └── leader lock loop (memory, badger or NATS KV)
	├── PipelineSupervisor ("pipelines")
	│   ├── outbox: poll new rows, detect id gaps, publish, advance offset
	│   └── recovery: retry gaps and failed publishes, escalate exhausted ones
	└── APISupervisor ("api")
	    └── ops HTTP server (/health, /ready, /metrics, /api/v1)

Only the instance holding the leader lock runs cycles. Every instance serves
the ops endpoints.

Startup order:

 1. Configuration: koanf (defaults, YAML file, environment)
 2. Logging: zerolog
 3. Datastore: sqlstore (postgres, mysql, oracle, duckdb) or in-memory
 4. Broker: optional embedded NATS server, connection, stream
 5. Leadership: lock store and coordinator
 6. Pipelines and ops server added to the supervisor tree

Flags:

	-seed N   append N demo rows to the outbox before starting

On SIGINT or SIGTERM the tree is cancelled, in-flight cycles finish their
publish and offset write, the leader lock is released and the broker
connection is drained.
*/
package main
