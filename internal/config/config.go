package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/aqasim81/migration-ledger/internal/database"
)

// Default values for configuration fields.
const (
	DefaultMigrationsDir = "./prisma/migrations"
	DefaultAppRole       = "nodejs"
	DefaultSchema        = "public"
	DefaultLedgerTable   = "migrations"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "console"
)

// Config holds the application configuration loaded from file, environment, and flags.
type Config struct {
	DatabaseURL      string
	MigrationsDir    string
	AppRole          string
	Schema           string
	LedgerTable      string
	LockTimeout      time.Duration
	StatementTimeout time.Duration
	Lock             bool
	StrictDigest     bool
	LogLevel         string
	LogFormat        string
}

// yamlConfig is the raw YAML file representation with string durations.
type yamlConfig struct {
	DatabaseURL      string `yaml:"database_url"`
	MigrationsDir    string `yaml:"migrations_dir"`
	AppRole          string `yaml:"app_role"`
	Schema           string `yaml:"schema"`
	LedgerTable      string `yaml:"ledger_table"`
	LockTimeout      string `yaml:"lock_timeout"`
	StatementTimeout string `yaml:"statement_timeout"`
	Lock             *bool  `yaml:"lock"`
	StrictDigest     *bool  `yaml:"strict_digest"`
	LogLevel         string `yaml:"log_level"`
	LogFormat        string `yaml:"log_format"`
}

// New returns a Config populated with default values.
func New() *Config {
	return &Config{
		MigrationsDir: DefaultMigrationsDir,
		AppRole:       DefaultAppRole,
		Schema:        DefaultSchema,
		LedgerTable:   DefaultLedgerTable,
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
	}
}

// Load reads a YAML configuration file and returns a Config.
// If allowMissing is true and the file does not exist, defaults are returned.
func Load(path string, allowMissing bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && allowMissing {
			return New(), nil
		}

		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	var raw yamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	return fromYAML(&raw)
}

// fromYAML converts the raw YAML representation to a Config with defaults applied.
func fromYAML(raw *yamlConfig) (*Config, error) {
	cfg := New()

	setString(&cfg.DatabaseURL, raw.DatabaseURL)
	setString(&cfg.MigrationsDir, raw.MigrationsDir)
	setString(&cfg.AppRole, raw.AppRole)
	setString(&cfg.Schema, raw.Schema)
	setString(&cfg.LedgerTable, raw.LedgerTable)
	setString(&cfg.LogLevel, raw.LogLevel)
	setString(&cfg.LogFormat, raw.LogFormat)

	if raw.LockTimeout != "" {
		d, err := time.ParseDuration(raw.LockTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing lock_timeout %q: %w", raw.LockTimeout, err)
		}

		cfg.LockTimeout = d
	}

	if raw.StatementTimeout != "" {
		d, err := time.ParseDuration(raw.StatementTimeout)
		if err != nil {
			return nil, fmt.Errorf("parsing statement_timeout %q: %w", raw.StatementTimeout, err)
		}

		cfg.StatementTimeout = d
	}

	if raw.Lock != nil {
		cfg.Lock = *raw.Lock
	}

	if raw.StrictDigest != nil {
		cfg.StrictDigest = *raw.StrictDigest
	}

	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// MergeEnv overrides config fields from MIGRATE_* environment variables.
// Unparseable durations and booleans are ignored.
func MergeEnv(cfg *Config) {
	setString(&cfg.DatabaseURL, os.Getenv("MIGRATE_DATABASE_URL"))
	setString(&cfg.MigrationsDir, os.Getenv("MIGRATE_MIGRATIONS_DIR"))
	setString(&cfg.AppRole, os.Getenv("MIGRATE_APP_ROLE"))
	setString(&cfg.Schema, os.Getenv("MIGRATE_SCHEMA"))
	setString(&cfg.LedgerTable, os.Getenv("MIGRATE_LEDGER_TABLE"))
	setString(&cfg.LogLevel, os.Getenv("MIGRATE_LOG_LEVEL"))
	setString(&cfg.LogFormat, os.Getenv("MIGRATE_LOG_FORMAT"))

	if v := os.Getenv("MIGRATE_LOCK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.LockTimeout = d
		}
	}

	if v := os.Getenv("MIGRATE_STATEMENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.StatementTimeout = d
		}
	}

	if v := os.Getenv("MIGRATE_LOCK"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Lock = b
		}
	}

	if v := os.Getenv("MIGRATE_STRICT_DIGEST"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.StrictDigest = b
		}
	}
}

// Validate checks the identifiers that end up in SQL text and the log format.
func (c *Config) Validate() error {
	for _, f := range []struct{ key, value string }{
		{"app_role", c.AppRole},
		{"schema", c.Schema},
		{"ledger_table", c.LedgerTable},
	} {
		if !database.ValidIdentifier(f.value) {
			return fmt.Errorf("%s: %w: %q", f.key, database.ErrInvalidIdentifier, f.value)
		}
	}

	if c.LogFormat != "console" && c.LogFormat != "json" {
		return fmt.Errorf("%w: log_format %q (want console or json)", ErrInvalidValue, c.LogFormat)
	}

	if c.LockTimeout < 0 || c.StatementTimeout < 0 {
		return fmt.Errorf("%w: timeouts must not be negative", ErrInvalidValue)
	}

	return nil
}
