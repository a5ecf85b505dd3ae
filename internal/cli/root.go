package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/aqasim81/migration-ledger/internal/config"
	"github.com/aqasim81/migration-ledger/internal/logging"
)

const version = "0.1.0"

// AppConfig holds the loaded configuration, set during PersistentPreRunE.
var AppConfig *config.Config //nolint:gochecknoglobals // standard Cobra pattern for shared config

// rootCmd is the base command for the migrate CLI.
var rootCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:     "migrate",
	Version: version,
	Short:   "Ledger-reconciling PostgreSQL migration runner",
	Long: `migrate compares a directory of SQL migrations with the ledger table
in the target database, and applies the ones not yet recorded. Each migration
runs in its own transaction together with the application role grants and
its ledger record. Without --commit nothing is written.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	flags := rootCmd.PersistentFlags()
	flags.String("config", "migrate.yml", "path to configuration file")
	flags.String("database-url", "", "PostgreSQL connection string (the positional argument wins)")
	flags.StringP("migrations-dir", "m", "", "path to the migrations directory")
	flags.String("app-role", "", "role granted SELECT, INSERT, UPDATE on the schema after each migration (folded to lower case)")
	flags.String("schema", "", "schema the grants apply to")
	flags.String("ledger-table", "", "name of the ledger table")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (console, json)")

	rootCmd.SetGlobalNormalizationFunc(normalizeFlagName)
}

// normalizeFlagName keeps the historical --app_user spelling working.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "app_user" {
		name = "app-role"
	}

	return pflag.NormalizedName(name)
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// Run executes the command tree with args, writing the report to stdout and
// logs to stderr. Flags and contexts left over from a previous Run are reset first.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	resetCommand(ctx, rootCmd)

	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	return rootCmd.ExecuteContext(ctx)
}

func resetCommand(ctx context.Context, cmd *cobra.Command) {
	cmd.SetContext(ctx)

	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}

	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)

	for _, sub := range cmd.Commands() {
		resetCommand(ctx, sub)
	}
}

// loadConfig loads configuration with precedence: flag > env > file, validates
// it and installs the logger on the command context.
func loadConfig(cmd *cobra.Command) error {
	configPath, _ := cmd.Flags().GetString("config")
	allowMissing := !cmd.Flags().Changed("config")

	cfg, err := config.Load(configPath, allowMissing)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	config.MergeEnv(cfg)
	mergeFlags(cmd, cfg)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	AppConfig = cfg

	logger := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Out:    cmd.ErrOrStderr(),
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cmd.SetContext(logger.WithContext(ctx))

	return nil
}

// mergeFlags overrides config with explicitly-set CLI flags.
func mergeFlags(cmd *cobra.Command, cfg *config.Config) {
	for name, dst := range map[string]*string{
		"database-url":   &cfg.DatabaseURL,
		"migrations-dir": &cfg.MigrationsDir,
		"app-role":       &cfg.AppRole,
		"schema":         &cfg.Schema,
		"ledger-table":   &cfg.LedgerTable,
		"log-level":      &cfg.LogLevel,
		"log-format":     &cfg.LogFormat,
	} {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			*dst = f.Value.String()
		}
	}
}

// commandContext returns the command context, or a background context
// carrying a disabled logger when the command was invoked directly in tests.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return zerolog.Nop().WithContext(context.Background())
}
