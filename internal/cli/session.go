package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/aqasim81/migration-ledger/internal/config"
	"github.com/aqasim81/migration-ledger/internal/credentials"
	"github.com/aqasim81/migration-ledger/internal/database"
	"github.com/aqasim81/migration-ledger/internal/ledger"
	"github.com/aqasim81/migration-ledger/internal/migration"
	"github.com/aqasim81/migration-ledger/internal/reconcile"
)

// errDatabaseURLRequired is returned when no database URL is configured.
var errDatabaseURLRequired = errors.New( //nolint:gochecknoglobals // sentinel error
	"database URL is required (pass it as an argument, or set --database-url, MIGRATE_DATABASE_URL, or database_url in config)",
)

// newPrompter is swapped in tests to avoid touching the terminal.
var newPrompter = func() credentials.Prompter { //nolint:gochecknoglobals // test seam
	return credentials.NewTerminalPrompter()
}

// session is an open connection pool plus the ledger bound to it.
type session struct {
	pool   *pgxpool.Pool
	ledger *ledger.Ledger
}

func (s *session) Close() {
	s.pool.Close()
}

// databaseURL picks the positional argument over the configured URL.
func databaseURL(args []string, cfg *config.Config) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}

	if cfg.DatabaseURL == "" {
		return "", errDatabaseURLRequired
	}

	return cfg.DatabaseURL, nil
}

// loadUnits reads the source directory and prints what it found.
func loadUnits(ctx context.Context, out io.Writer, dir string) ([]migration.Unit, error) {
	units, err := migration.LoadFromDir(dir)
	if err != nil {
		return nil, fmt.Errorf("loading migrations: %w", err)
	}

	if len(units) == 0 {
		return nil, fmt.Errorf("%w in %s", reconcile.ErrNoMigrations, dir)
	}

	units = migration.Sort(units)

	fmt.Fprintf(out, "Found %d migration(s) in %s\n", len(units), dir)
	zerolog.Ctx(ctx).Debug().Str("dir", dir).Int("count", len(units)).Msg("loaded migrations")

	return units, nil
}

// openSession resolves the password, connects, and binds the ledger table.
func openSession(ctx context.Context, out io.Writer, cfg *config.Config, dsn string) (*session, error) {
	redacted := config.RedactURL(dsn)

	password, source, err := credentials.Resolve(dsn, redacted, os.LookupEnv, newPrompter())
	if err != nil {
		return nil, err
	}

	zerolog.Ctx(ctx).Debug().Str("source", string(source)).Msg("resolved database password")
	fmt.Fprintf(out, "Connecting to %s\n", redacted)

	pool, err := database.NewPool(ctx, dsn, password)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	l, err := ledger.New(pool, cfg.LedgerTable)
	if err != nil {
		pool.Close()

		return nil, err
	}

	return &session{pool: pool, ledger: l}, nil
}

// lockKey names the advisory lock shared by every runner targeting the same ledger.
func lockKey(cfg *config.Config) string {
	return "migration-ledger:" + cfg.Schema + "." + cfg.LedgerTable
}

// reportMismatches logs a warning per applied unit whose script changed.
func reportMismatches(ctx context.Context, out io.Writer, ms []reconcile.Mismatch) {
	for _, m := range ms {
		zerolog.Ctx(ctx).Warn().
			Str("unit", m.Name).
			Str("recorded", m.Recorded).
			Str("current", m.Current).
			Msg("applied migration changed since it was recorded")
		fmt.Fprintf(out, "WARNING: %s was modified after it was applied (digest %s, recorded %s)\n",
			m.Name, short(m.Current), short(m.Recorded))
	}
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}

	return digest
}
