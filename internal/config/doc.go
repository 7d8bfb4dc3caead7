// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

/*
Package config loads the publisher configuration.

Sources are layered with koanf, later layers winning:

 1. built-in defaults (defaultConfig)
 2. an optional YAML file: CONFIG_PATH, else config.yaml, config.yml,
    /etc/outbox-publisher/config.yaml
 3. environment variables from an explicit allow-list (envTransformFunc)

The merged result is checked with struct tags through internal/validation
and then by the cross-field rules in config_validate.go. A configuration
error is fatal at startup.

Sections:

  - worker: batch sizes, retry limits and pipeline delays
  - circuit_breaker: per-pipeline datastore breaker
  - leadership and lock: leader election timings and lock backend
  - publishing: the publishing switch (hot-reloadable)
  - datastore: backend type, DSN, table names, pool and write retries
  - nats: broker connection, embedded server, stream and client breaker
  - server: ops HTTP endpoints
  - supervisor: suture restart policy
  - logging: zerolog level and format
*/
package config
