// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package config

import (
	"fmt"

	"github.com/tomtom215/outboxpublisher/internal/validation"
)

// Validate runs the struct tag rules and then the cross-field checks.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if err := c.validateWorker(); err != nil {
		return err
	}
	if err := c.validateLeadership(); err != nil {
		return err
	}
	if err := c.validateDatastore(); err != nil {
		return err
	}
	return c.validateNATS()
}

func (c *Config) validateWorker() error {
	if c.Worker.ErrorBackoffMax < c.Worker.ErrorBackoffInitial {
		return fmt.Errorf("ERROR_BACKOFF_MAX (%s) must be >= ERROR_BACKOFF_INITIAL (%s)",
			c.Worker.ErrorBackoffMax, c.Worker.ErrorBackoffInitial)
	}
	return nil
}

func (c *Config) validateLeadership() error {
	if !c.Leadership.Enabled {
		return nil
	}
	if c.Leadership.Lifetime <= c.Leadership.RaceInterval {
		return fmt.Errorf("LEADERSHIP_LIFETIME (%s) must be greater than LEADERSHIP_RACE_INTERVAL (%s)",
			c.Leadership.Lifetime, c.Leadership.RaceInterval)
	}
	if c.Leadership.Lifetime <= c.Leadership.CheckInterval {
		return fmt.Errorf("LEADERSHIP_LIFETIME (%s) must be greater than LEADERSHIP_CHECK_INTERVAL (%s)",
			c.Leadership.Lifetime, c.Leadership.CheckInterval)
	}
	return nil
}

func (c *Config) validateDatastore() error {
	switch c.Datastore.Type {
	case "memory", "duckdb":
	default:
		if c.Datastore.DSN == "" {
			return fmt.Errorf("DATASTORE_DSN is required for datastore type %q", c.Datastore.Type)
		}
	}
	if c.Datastore.Type == "oracle" && c.Datastore.AutoMigrate {
		return fmt.Errorf("DATASTORE_AUTO_MIGRATE is not supported for oracle; create the tables ahead of time")
	}
	t := c.Datastore.Tables
	seen := map[string]bool{}
	for _, name := range []string{t.Outbox, t.Missing, t.Exceeded, t.Offset} {
		if seen[name] {
			return fmt.Errorf("datastore table names must be distinct, %q is used twice", name)
		}
		seen[name] = true
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.EmbeddedServer {
		return nil
	}
	if c.NATS.StreamReplicas > 1 {
		return fmt.Errorf("NATS_STREAM_REPLICAS must be 1 with the embedded server")
	}
	if c.NATS.MaxStore > 0 && c.NATS.MaxStore < c.NATS.MaxMemory {
		return fmt.Errorf("NATS_MAX_STORE (%d) should be >= NATS_MAX_MEMORY (%d)",
			c.NATS.MaxStore, c.NATS.MaxMemory)
	}
	if c.Lock.Backend == "nats" && c.Lock.KVBucket == "" {
		return fmt.Errorf("LOCK_KV_BUCKET is required for the nats lock backend")
	}
	return nil
}
