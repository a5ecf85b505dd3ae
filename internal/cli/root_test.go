package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aqasim81/migration-ledger/internal/config"
	"github.com/aqasim81/migration-ledger/internal/database"
	"github.com/aqasim81/migration-ledger/internal/migration"
)

// newTestCommand mirrors the persistent flags registered on rootCmd.
func newTestCommand() *cobra.Command {
	cmd := &cobra.Command{}
	cmd.Flags().String("config", "migrate.yml", "")
	cmd.Flags().String("database-url", "", "")
	cmd.Flags().StringP("migrations-dir", "m", "", "")
	cmd.Flags().String("app-role", "", "")
	cmd.Flags().String("schema", "", "")
	cmd.Flags().String("ledger-table", "", "")
	cmd.Flags().String("log-level", "", "")
	cmd.Flags().String("log-format", "", "")
	cmd.Flags().SetNormalizeFunc(normalizeFlagName)

	return cmd
}

func TestMergeFlags_overridesConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cmd := newTestCommand()

	require.NoError(t, cmd.Flags().Set("database-url", "postgres://test:5432/db"))
	require.NoError(t, cmd.Flags().Set("migrations-dir", "/custom/migrations"))
	require.NoError(t, cmd.Flags().Set("app-role", "webapp"))
	require.NoError(t, cmd.Flags().Set("schema", "app"))
	require.NoError(t, cmd.Flags().Set("ledger-table", "ledger"))

	mergeFlags(cmd, cfg)

	assert.Equal(t, "postgres://test:5432/db", cfg.DatabaseURL)
	assert.Equal(t, "/custom/migrations", cfg.MigrationsDir)
	assert.Equal(t, "webapp", cfg.AppRole)
	assert.Equal(t, "app", cfg.Schema)
	assert.Equal(t, "ledger", cfg.LedgerTable)
}

func TestMergeFlags_unchangedFlags_preserveConfig(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cfg.DatabaseURL = "postgres://original:5432/db"
	cfg.MigrationsDir = "/original/dir"

	mergeFlags(newTestCommand(), cfg)

	assert.Equal(t, "postgres://original:5432/db", cfg.DatabaseURL)
	assert.Equal(t, "/original/dir", cfg.MigrationsDir)
	assert.Equal(t, config.DefaultAppRole, cfg.AppRole)
}

func TestMergeFlags_appUserAlias(t *testing.T) {
	t.Parallel()

	cfg := config.New()
	cmd := newTestCommand()

	require.NoError(t, cmd.Flags().Parse([]string{"--app_user", "legacy_role", "-m", "./db"}))

	mergeFlags(cmd, cfg)

	assert.Equal(t, "legacy_role", cfg.AppRole)
	assert.Equal(t, "./db", cfg.MigrationsDir)
}

func TestNormalizeFlagName(t *testing.T) {
	t.Parallel()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)

	assert.Equal(t, pflag.NormalizedName("app-role"), normalizeFlagName(fs, "app_user"))
	assert.Equal(t, pflag.NormalizedName("schema"), normalizeFlagName(fs, "schema"))
}

func TestLoadConfig_missingFile_usesDefaults(t *testing.T) { // not parallel: mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	cmd := newTestCommand()

	err := loadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, AppConfig)
	assert.Equal(t, config.DefaultMigrationsDir, AppConfig.MigrationsDir)
	assert.Equal(t, config.DefaultAppRole, AppConfig.AppRole)
	assert.NotEqual(t, zerolog.Disabled, zerolog.Ctx(cmd.Context()).GetLevel(), "logger is installed on the command context")
}

func TestLoadConfig_validFile_loadsValues(t *testing.T) { // not parallel: mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "test-config.yml")

	yamlContent := "migrations_dir: /from/yaml\napp_role: reporting\nlog_format: json\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(yamlContent), 0o600))

	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("config", cfgPath))

	err := loadConfig(cmd)
	require.NoError(t, err)
	require.NotNil(t, AppConfig)
	assert.Equal(t, "/from/yaml", AppConfig.MigrationsDir)
	assert.Equal(t, "reporting", AppConfig.AppRole)
	assert.Equal(t, "json", AppConfig.LogFormat)
}

func TestLoadConfig_invalidFile_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "bad-config.yml")

	require.NoError(t, os.WriteFile(cfgPath, []byte("lock_timeout: [unclosed"), 0o600))

	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("config", cfgPath))

	err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading configuration")
}

func TestLoadConfig_invalidRole_returnsError(t *testing.T) { // not parallel: mutates global AppConfig
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	cmd := newTestCommand()
	require.NoError(t, cmd.Flags().Set("app-role", `nodejs; DROP ROLE postgres`))

	err := loadConfig(cmd)
	require.ErrorIs(t, err, database.ErrInvalidIdentifier)
}

func TestRun_resetsFlagsBetweenRuns(t *testing.T) { // not parallel: drives the global command tree
	oldCfg, oldNow := AppConfig, now
	t.Cleanup(func() { AppConfig, now = oldCfg, oldNow })

	now = func() time.Time { return time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC) }

	dir := t.TempDir()
	seed := filepath.Join(t.TempDir(), "seed.sql")
	require.NoError(t, os.WriteFile(seed, []byte("SELECT 1;\n"), 0o600))

	ctx := context.Background()
	out := new(bytes.Buffer)

	require.NoError(t, Run(ctx, []string{"new", "-m", dir, "--from", seed, "first"}, out, io.Discard))
	require.NoError(t, Run(ctx, []string{"new", "-m", dir, "second"}, out, io.Discard))

	first, err := os.ReadFile(filepath.Join(dir, "20240601090000_first", migration.ScriptName))
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1;\n", string(first))

	second, err := os.ReadFile(filepath.Join(dir, "20240601090000_second", migration.ScriptName))
	require.NoError(t, err)
	assert.Empty(t, second, "--from does not leak into the next run")
	assert.Contains(t, out.String(), "Created "+filepath.Join(dir, "20240601090000_second"))
}

func TestRun_apply_missingDatabaseURL(t *testing.T) { // not parallel: drives the global command tree
	old := AppConfig
	t.Cleanup(func() { AppConfig = old })

	t.Setenv("MIGRATE_DATABASE_URL", "")

	err := Run(context.Background(), []string{"apply", "-m", t.TempDir()}, io.Discard, io.Discard)

	require.ErrorIs(t, err, errDatabaseURLRequired)
}
