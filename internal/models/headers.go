// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package models

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// ParseHeaders decodes the outbox header column. An empty column yields nil.
// Null values decode to empty strings.
func ParseHeaders(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var decoded map[string]*string
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("decode outbox header: %w", err)
	}

	headers := make(map[string]string, len(decoded))
	for k, v := range decoded {
		if v == nil {
			headers[k] = ""
			continue
		}
		headers[k] = *v
	}
	return headers, nil
}

// Headers decodes the event's header column.
func (e OutboxEvent) Headers() (map[string]string, error) {
	return ParseHeaders(e.Header)
}
