//go:build integration

// Package containers provides testcontainers-go helpers for integration
// testing against real database and service containers.
//
// All helpers in this package are gated behind the "integration" build
// tag so they do not pull Docker-related dependencies into unit test
// builds. Use them exclusively from test files that carry the same tag:
//
//	//go:build integration
//
// # PostgreSQL
//
// [StartPostgres] starts a PostgreSQL 16 container and returns a
// [PostgresResult] containing the container handle and a connection
// string ready for use with [postgres.Config.URI]:
//
//	result, err := containers.StartPostgres(ctx)
//	if err != nil { ... }
//	defer result.Container.Terminate(ctx)
//
//	cfg := postgres.Config{URI: result.ConnString, MaxConns: 5}
//
// # Redis
//
// [StartRedis] starts a Redis 7 container and returns a [RedisResult]
// containing the container handle and a connection string (redis://...):
//
//	result, err := containers.StartRedis(ctx)
//	if err != nil { ... }
//	defer result.Container.Terminate(ctx)
package containers

import (
	"context"
	"fmt"

	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// ===========================================================================
// PostgreSQL
// ===========================================================================

// DefaultPostgresImage is the container image used for PostgreSQL
// integration tests. Alpine variant is used for minimal image size and
// fast startup time.
const DefaultPostgresImage = "docker.io/postgres:16-alpine"

// DefaultPostgresDatabase is the database name created inside the
// PostgreSQL container for integration tests.
const DefaultPostgresDatabase = "tiketti_test"

// DefaultPostgresUser is the superuser name for the PostgreSQL
// container. This account has full DDL/DML privileges for test setup.
const DefaultPostgresUser = "testuser"

// DefaultPostgresPassword is the password for the test superuser.
// This is a deliberately weak credential suitable only for ephemeral
// test containers running on a trusted local network.
const DefaultPostgresPassword = "testpassword"

// PostgresResult holds a started PostgreSQL container and the
// connection string needed to connect to it. The caller is responsible
// for terminating the container when it is no longer needed:
//
//	defer result.Container.Terminate(ctx)
//
// ConnString includes sslmode=disable because testcontainers expose
// PostgreSQL on localhost without TLS.
type PostgresResult struct {
	// Container is the started PostgreSQL testcontainer.
	Container *tcpostgres.PostgresContainer

	// ConnString is a PostgreSQL connection string in URI format.
	// Pass this directly to [postgres.Config.URI].
	ConnString string
}

// StartPostgres starts a PostgreSQL 16 container using testcontainers-go
// and returns a [PostgresResult] containing the container handle and a
// connection string with sslmode=disable.
//
// The caller must terminate the container when done. StartPostgres
// returns an error if the container fails to start or if the connection
// string cannot be retrieved; in the latter case, the container is
// terminated before returning.
func StartPostgres(ctx context.Context) (*PostgresResult, error) {
	container, err := tcpostgres.Run(ctx,
		DefaultPostgresImage,
		tcpostgres.WithDatabase(DefaultPostgresDatabase),
		tcpostgres.WithUsername(DefaultPostgresUser),
		tcpostgres.WithPassword(DefaultPostgresPassword),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, fmt.Errorf("containers: failed to start postgres container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		// Clean up the started container before returning the error.
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("containers: failed to get connection string: %w", err)
	}

	return &PostgresResult{
		Container:  container,
		ConnString: connStr,
	}, nil
}

// ===========================================================================
// Redis
// ===========================================================================

// DefaultRedisImage is the container image used for Redis integration
// tests. Alpine variant is used for minimal image size and fast startup.
const DefaultRedisImage = "docker.io/redis:7-alpine"

// RedisResult holds a started Redis container and the connection string
// needed to connect to it. The caller is responsible for terminating
// the container when it is no longer needed:
//
//	defer result.Container.Terminate(ctx)
//
// ConnString is in Redis URI format (e.g., "redis://localhost:55679/0").
type RedisResult struct {
	// Container is the started Redis testcontainer.
	Container *tcredis.RedisContainer

	// ConnString is a Redis connection string in URI format. Pass this
	// directly to the Redis client configuration.
	ConnString string
}

// StartRedis starts a Redis 7 container using testcontainers-go and
// returns a [RedisResult] containing the container handle and a
// connection string.
//
// The container runs without authentication, which is suitable for
// ephemeral test containers on a trusted local network.
//
// The caller must terminate the container when done. StartRedis returns
// an error if the container fails to start or if the connection string
// cannot be retrieved; in the latter case, the container is terminated
// before returning.
func StartRedis(ctx context.Context) (*RedisResult, error) {
	container, err := tcredis.Run(ctx, DefaultRedisImage)
	if err != nil {
		return nil, fmt.Errorf("containers: failed to start redis container: %w", err)
	}

	connStr, err := container.ConnectionString(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("containers: failed to get redis connection string: %w", err)
	}

	return &RedisResult{
		Container:  container,
		ConnString: connStr,
	}, nil
}
