// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package broker

import (
	"strconv"

	"github.com/tomtom215/outboxpublisher/internal/models"
)

// PartitionKeyHeader carries the outbox row key.
const PartitionKeyHeader = "Partition-Key"

// Message is one outbox row prepared for publishing.
type Message struct {
	ID      int64
	Topic   string
	Key     string
	Value   string
	Headers map[string]string
}

// MessageID is the deduplication id for the row.
func (m Message) MessageID() string {
	return "outbox-" + strconv.FormatInt(m.ID, 10)
}

// MessageFromEvent maps an outbox row to a Message. An undecodable header
// column is a KindOther failure.
func MessageFromEvent(e models.OutboxEvent) (Message, error) {
	headers, err := e.Headers()
	if err != nil {
		return Message{}, NewError(KindOther, e.Topic, err)
	}
	return Message{
		ID:      e.ID,
		Topic:   e.Topic,
		Key:     e.Key,
		Value:   e.Value,
		Headers: headers,
	}, nil
}
