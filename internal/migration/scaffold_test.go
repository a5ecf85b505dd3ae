package migration_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/migration-ledger/internal/migration"
)

func TestScaffold_createsLoadableUnit(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "prisma", "migrations")
	now := time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)

	unitDir, err := migration.Scaffold(dir, "add_users", now, "CREATE TABLE users (id int);\n")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "20240601123045_add_users"), unitDir)

	us, err := migration.LoadFromDir(dir)
	require.NoError(t, err)
	require.Len(t, us, 1)
	assert.Equal(t, "20240601123045_add_users", us[0].Name)
	assert.Equal(t, "CREATE TABLE users (id int);\n", us[0].SQL)
}

func TestScaffold_existingUnit_returnsError(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := migration.Scaffold(dir, "init", now, "")
	require.NoError(t, err)

	_, err = migration.Scaffold(dir, "init", now, "SELECT 1;")
	require.ErrorIs(t, err, migration.ErrUnitExists)

	data, err := os.ReadFile(filepath.Join(dir, "20240601000000_init", migration.ScriptName))
	require.NoError(t, err)
	assert.Empty(t, data, "existing script must not be overwritten")
}

func TestScaffold_invalidLabel_returnsError(t *testing.T) {
	t.Parallel()

	_, err := migration.Scaffold(t.TempDir(), "drop table; --", time.Now(), "")

	require.ErrorIs(t, err, migration.ErrMalformedName)
}
