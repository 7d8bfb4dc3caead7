// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/outboxpublisher/internal/config"
	"github.com/tomtom215/outboxpublisher/internal/models"
	"github.com/tomtom215/outboxpublisher/internal/store"
	"github.com/tomtom215/outboxpublisher/internal/store/memory"
	"github.com/tomtom215/outboxpublisher/internal/store/sqlstore"
)

// openDatastore returns the stores for cfg.Type. "memory" keeps everything
// in process and is meant for local runs.
func openDatastore(ctx context.Context, cfg config.DatastoreConfig) (store.Stores, error) {
	if cfg.Type == "memory" {
		return memory.New().Stores(), nil
	}

	s, err := sqlstore.Open(ctx, sqlstoreConfig(cfg))
	if err != nil {
		return store.Stores{}, fmt.Errorf("open %s datastore: %w", cfg.Type, err)
	}
	return s.Stores(), nil
}

func sqlstoreConfig(cfg config.DatastoreConfig) sqlstore.Config {
	return sqlstore.Config{
		Dialect: cfg.Type,
		DSN:     cfg.DSN,
		Tables: sqlstore.Tables{
			Outbox:   cfg.Tables.Outbox,
			Missing:  cfg.Tables.Missing,
			Exceeded: cfg.Tables.Exceeded,
			Offset:   cfg.Tables.Offset,
		},
		MaxOpenConns:       cfg.MaxOpenConns,
		MaxIdleConns:       cfg.MaxIdleConns,
		ConnMaxLifetime:    cfg.ConnMaxLifetime,
		WriteRetryAttempts: cfg.WriteRetryAttempts,
		WriteRetryInterval: cfg.WriteRetryInterval,
		AutoMigrate:        cfg.AutoMigrate,
	}
}

// demoTopics are cycled through by seedOutbox.
var demoTopics = []string{"outbox.orders", "outbox.payments", "outbox.shipments"}

// seedOutbox appends n demo events in one batch.
func seedOutbox(ctx context.Context, w store.OutboxWriter, n int) error {
	events := make([]models.OutboxEvent, 0, n)
	for i := 0; i < n; i++ {
		value, err := json.Marshal(map[string]interface{}{
			"sequence": i + 1,
			"order_id": uuid.NewString(),
		})
		if err != nil {
			return err
		}
		header, err := json.Marshal(map[string]string{"source": "seed"})
		if err != nil {
			return err
		}
		events = append(events, models.OutboxEvent{
			Key:    uuid.NewString(),
			Value:  string(value),
			Topic:  demoTopics[i%len(demoTopics)],
			Header: string(header),
		})
	}
	return w.Append(ctx, events)
}
