// Outbox Publisher - Polling Transactional Outbox Relay
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/outboxpublisher

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	DefaultPostgresImage = "postgres:16-alpine"
	DefaultMySQLImage    = "mysql:8.4"

	testUser     = "outbox"
	testPassword = "outbox"
	testDatabase = "outbox"
)

// DatabaseContainer is a running database with a DSN for its Go driver.
type DatabaseContainer struct {
	testcontainers.Container
	// Dialect is the sqlstore dialect name.
	Dialect string
	DSN     string
}

// DatabaseOption configures a database container.
type DatabaseOption func(*databaseConfig)

type databaseConfig struct {
	image        string
	startTimeout time.Duration
}

// WithStartTimeout overrides how long to wait for readiness.
func WithStartTimeout(d time.Duration) DatabaseOption {
	return func(c *databaseConfig) { c.startTimeout = d }
}

// NewPostgresContainer starts PostgreSQL. DSN targets the pgx stdlib driver.
func NewPostgresContainer(ctx context.Context, opts ...DatabaseOption) (*DatabaseContainer, error) {
	cfg := &databaseConfig{image: DefaultPostgresImage, startTimeout: 60 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
			"POSTGRES_DB":       testDatabase,
		},
		// The entrypoint restarts postgres once after init.
		WaitingFor: wait.ForAll(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			wait.ForListeningPort("5432/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}
	return start(ctx, req, "postgres", func(host, port string) string {
		return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", testUser, testPassword, host, port, testDatabase)
	})
}

// NewMySQLContainer starts MySQL. DSN targets go-sql-driver/mysql.
func NewMySQLContainer(ctx context.Context, opts ...DatabaseOption) (*DatabaseContainer, error) {
	cfg := &databaseConfig{image: DefaultMySQLImage, startTimeout: 120 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}

	req := testcontainers.ContainerRequest{
		Image:        cfg.image,
		ExposedPorts: []string{"3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": testPassword,
			"MYSQL_USER":          testUser,
			"MYSQL_PASSWORD":      testPassword,
			"MYSQL_DATABASE":      testDatabase,
		},
		WaitingFor: wait.ForAll(
			wait.ForLog("port: 3306  MySQL Community Server"),
			wait.ForListeningPort("3306/tcp"),
		).WithStartupTimeout(cfg.startTimeout),
	}
	return start(ctx, req, "mysql", func(host, port string) string {
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true", testUser, testPassword, host, port, testDatabase)
	})
}

func start(ctx context.Context, req testcontainers.ContainerRequest, dialect string, dsn func(host, port string) string) (*DatabaseContainer, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("create %s container: %w", dialect, err)
	}

	host, mapped, err := hostPort(ctx, container)
	if err != nil {
		container.Terminate(ctx) //nolint:errcheck
		return nil, fmt.Errorf("resolve %s address: %w", dialect, err)
	}

	return &DatabaseContainer{
		Container: container,
		Dialect:   dialect,
		DSN:       dsn(host, mapped),
	}, nil
}
