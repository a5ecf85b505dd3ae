//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/migration-ledger/internal/executor"
	"github.com/aqasim81/migration-ledger/internal/ledger"
	"github.com/aqasim81/migration-ledger/internal/migration"
)

func TestLedger_fullLifecycle(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	l, err := ledger.New(pool, ledger.DefaultTable)
	require.NoError(t, err)

	// Missing table is reported, not created.
	_, err = l.FetchAll(ctx)
	require.ErrorIs(t, err, ledger.ErrLedgerMissing)

	entries, created, err := l.Load(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, created)
	assert.False(t, TableExists(t, pool, ledger.DefaultTable))

	// Creating twice is harmless.
	require.NoError(t, l.InitializeIfAbsent(ctx))
	require.NoError(t, l.InitializeIfAbsent(ctx))

	entries, err = l.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)

	dir := t.TempDir()
	WriteUnit(t, dir, "20240601_init", "CREATE TABLE t (id int);")
	units := LoadUnits(t, dir)
	require.Len(t, units, 1)

	err = executor.ExecInTransaction(ctx, pool, func(tx pgx.Tx) error {
		return l.Append(ctx, tx, ledger.NewEntry(&units[0]))
	})
	require.NoError(t, err)

	entries, err = l.FetchAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "20240601_init", e.Name)
	assert.Equal(t, units[0].Size, e.Size)
	assert.Equal(t, units[0].Digest, e.Digest)
	assert.True(t, units[0].MTime.Equal(e.MTime), "mtime survives the round trip")
	assert.True(t, units[0].CTime.Equal(e.CTime), "ctime survives the round trip")
	assert.NotEqual(t, uuid.Nil, e.ID, "id is generated server-side")
	assert.WithinDuration(t, time.Now(), e.Created, time.Minute)
}

func TestLedger_Append_rolledBackWithCallerTransaction(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	l, err := ledger.New(pool, ledger.DefaultTable)
	require.NoError(t, err)
	require.NoError(t, l.InitializeIfAbsent(ctx))

	errAbort := errors.New("abort")
	u := &migration.Unit{Name: "001_a", Size: 1, CTime: time.Now().UTC(), MTime: time.Now().UTC(), Digest: "d"}

	err = executor.ExecInTransaction(ctx, pool, func(tx pgx.Tx) error {
		if err := l.Append(ctx, tx, ledger.NewEntry(u)); err != nil {
			return err
		}

		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	entries, err := l.FetchAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLedger_customTableName(t *testing.T) {
	t.Parallel()

	pool := SetupPostgres(t)
	ctx := context.Background()

	l, err := ledger.New(pool, "schema_ledger")
	require.NoError(t, err)

	_, created, err := l.Load(ctx, true)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, TableExists(t, pool, "schema_ledger"))
	assert.False(t, TableExists(t, pool, ledger.DefaultTable))
}
