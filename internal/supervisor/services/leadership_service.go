// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package services

import (
	"context"
	"fmt"
)

// LeadershipRunner is satisfied by *leader.Coordinator. Run keeps racing for
// and refreshing the lock and releases it when ctx ends.
type LeadershipRunner interface {
	Run(ctx context.Context) error
	IsLeader() bool
}

// LeadershipService keeps the leader lock loop alive. It lives in its own
// supervisor layer so a pipeline restart never drops the lock.
type LeadershipService struct {
	runner LeadershipRunner
	name   string
}

// NewLeadershipService wraps runner.
func NewLeadershipService(runner LeadershipRunner) *LeadershipService {
	return &LeadershipService{runner: runner, name: "leadership"}
}

// Serve implements suture.Service.
func (s *LeadershipService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		return fmt.Errorf("leadership loop exited unexpectedly")
	}
	return fmt.Errorf("leadership loop failed: %w", err)
}

func (s *LeadershipService) String() string {
	return s.name
}
