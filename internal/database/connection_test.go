package database_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/aqasim81/migration-ledger/internal/database"
)

func TestNewPool_invalidURL_returnsInvalidURLError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, err := database.NewPool(ctx, "not-a-valid-url", "")

	require.ErrorIs(t, err, database.ErrInvalidDatabaseURL)
}

func TestNewPool_unreachableHost_returnsConnectionFailed(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	_, err := database.NewPool(ctx, "postgres://user@127.0.0.1:1/db?connect_timeout=1", "secret")

	require.ErrorIs(t, err, database.ErrConnectionFailed)
}
