package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// newTestClient starts a disposable PostgreSQL container, runs the embedded
// migrations against it, and returns a ready Client. Skips under -short since
// it needs a container runtime.
func newTestClient(t *testing.T) *Client {
	if testing.Short() {
		t.Skip("requires a container runtime")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("docengine_test"),
		postgres.WithUsername("docengine"),
		postgres.WithPassword("docengine"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	cfg := Config{
		Host: host, Port: port.Int(),
		User: "docengine", Password: "docengine", Database: "docengine_test",
		SSLMode:         "disable",
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 15 * time.Minute,
	}

	client, err := NewClient(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client
}

func TestClientConnectionPool(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, client.Ping(ctx))

	health, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "healthy", health.Status)
	assert.Greater(t, health.MaxConns, int32(0))
}

func TestMigrationsCreateExpectedTables(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	var tableName string
	err := client.Pool.QueryRow(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_name = 'checkpoints'`,
	).Scan(&tableName)
	require.NoError(t, err)
	assert.Equal(t, "checkpoints", tableName)
}
