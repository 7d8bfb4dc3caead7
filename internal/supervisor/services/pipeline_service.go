// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

package services

import (
	"context"
	"fmt"
)

// PipelineRunner is satisfied by *pipeline.Runner.
type PipelineRunner interface {
	Name() string
	Run(ctx context.Context) error
}

// PipelineService runs one publishing pipeline (outbox or recovery).
//
// The runner loops until its context ends. Returning for any other reason is
// treated as a failure so suture restarts it with backoff.
type PipelineService struct {
	runner PipelineRunner
	name   string
}

// NewPipelineService wraps runner.
func NewPipelineService(runner PipelineRunner) *PipelineService {
	return &PipelineService{
		runner: runner,
		name:   "pipeline-" + runner.Name(),
	}
}

// Serve implements suture.Service.
func (s *PipelineService) Serve(ctx context.Context) error {
	err := s.runner.Run(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		return fmt.Errorf("%s exited unexpectedly", s.name)
	}
	return fmt.Errorf("%s failed: %w", s.name, err)
}

func (s *PipelineService) String() string {
	return s.name
}
