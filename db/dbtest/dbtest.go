// Package dbtest connects integration tests to Postgres and Redis. DB_CONN and REDIS_ADDR are used when set,
// otherwise throwaway containers are started with testcontainers and shared by every test of the package.
package dbtest

import (
	"context"
	"os"
	"strings"
	"sync"
	"testing"

	"zestpass/db"
	"zestpass/util"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const (
	postgresImage = "docker.io/postgres:16-alpine"
	redisImage    = "docker.io/redis:7-alpine"
)

var (
	once       sync.Once
	queries    *db.Queries
	setupErr   error
	containers []testcontainers.Container
)

// Queries backed by Postgres and Redis, migrated once per test binary.
// Skips the test when no database is configured and Docker is not available
func Queries(t *testing.T) *db.Queries {
	t.Helper()
	if os.Getenv("DB_CONN") == "" || os.Getenv("REDIS_ADDR") == "" {
		testcontainers.SkipIfProviderIsNotHealthy(t)
	}

	once.Do(func() {
		queries, setupErr = setup(context.Background())
	})
	require.NoError(t, setupErr)
	return queries
}

// Stop the containers started by Queries. Call from TestMain once the tests are done
func Teardown() {
	for _, container := range containers {
		if err := testcontainers.TerminateContainer(container); err != nil {
			util.LOGGER.Warn("failed to terminate test container", "error", err)
		}
	}
	containers = nil
}

func setup(ctx context.Context) (*db.Queries, error) {
	connStr := os.Getenv("DB_CONN")
	if connStr == "" {
		container, err := postgres.Run(ctx, postgresImage,
			postgres.WithDatabase("zestpass"),
			postgres.WithUsername("zestpass"),
			postgres.WithPassword("zestpass"),
			postgres.BasicWaitStrategies(),
		)
		if container != nil {
			containers = append(containers, container)
		}
		if err != nil {
			return nil, err
		}

		connStr, err = container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			return nil, err
		}
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		container, err := tcredis.Run(ctx, redisImage)
		if container != nil {
			containers = append(containers, container)
		}
		if err != nil {
			return nil, err
		}

		uri, err := container.ConnectionString(ctx)
		if err != nil {
			return nil, err
		}
		redisAddr = strings.TrimPrefix(uri, "redis://")
	}

	q := db.NewQueries()
	if err := q.ConnectDB(connStr); err != nil {
		return nil, err
	}
	if err := q.AutoMigration(); err != nil {
		return nil, err
	}
	if err := q.ConnectRedis(ctx, &redis.Options{Addr: redisAddr}); err != nil {
		return nil, err
	}
	return q, nil
}
