//go:build integration

package postgres

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/xenking/medsupply-storefront/internal/storage/kv"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "storefront",
				"POSTGRES_PASSWORD": "storefront",
				"POSTGRES_DB":       "storefront",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	require.NoError(t, err)
	port, err := c.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://storefront:storefront@%s:%s/storefront?sslmode=disable", host, port.Port())
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	pool, err := NewPool(ctx, startPostgres(t))
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, RunMigrations(ctx, pool))

	s := NewStore(pool)
	require.NoError(t, s.Ping(ctx))

	_, ok, err := s.Get(ctx, kv.KeyCompare)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, kv.SaveJSON(ctx, s, kv.KeyCompare, map[string]int{"a": 1}))
	require.NoError(t, kv.SaveJSON(ctx, s, kv.KeyCompare, map[string]int{"b": 2}))

	var got map[string]int
	ok, err = kv.LoadJSON(ctx, s, kv.KeyCompare, &got)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"b": 2}, got)

	require.NoError(t, s.Remove(ctx, kv.KeyCompare))
	_, ok, err = s.Get(ctx, kv.KeyCompare)
	require.NoError(t, err)
	assert.False(t, ok)
}
