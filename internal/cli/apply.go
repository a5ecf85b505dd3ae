package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/aqasim81/migration-ledger/internal/config"
	"github.com/aqasim81/migration-ledger/internal/database"
	"github.com/aqasim81/migration-ledger/internal/executor"
	"github.com/aqasim81/migration-ledger/internal/reconcile"
)

var applyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "apply [database-url]",
	Short: "Apply pending migrations",
	Long: `Apply every migration that has no ledger entry, in name order. Each one
runs in its own transaction with the role grants and its ledger record.

Without -c/--commit this is a dry run: the exact statements are printed and
nothing is written, not even the ledger table.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runApply,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	applyCmd.Flags().BoolP("commit", "c", false, "execute the migrations (default is a dry run)")
	applyCmd.Flags().Bool("lock", false, "hold a session advisory lock for the whole run")
	applyCmd.Flags().Bool("strict-digest", false, "fail when an applied migration changed since it was recorded")
	applyCmd.Flags().Duration("lock-timeout", 0, "override lock timeout (e.g., 10s, 1m)")
	applyCmd.Flags().Duration("statement-timeout", 0, "override statement timeout (e.g., 30s, 5m)")
	rootCmd.AddCommand(applyCmd)
}

type applyOpts struct {
	commit       bool
	lock         bool
	strictDigest bool
	lockTimeout  time.Duration
	stmtTimeout  time.Duration
}

// resolveApplyOpts merges apply-only flags over the configuration.
func resolveApplyOpts(cmd *cobra.Command, cfg *config.Config) applyOpts {
	opts := applyOpts{
		lock:         cfg.Lock,
		strictDigest: cfg.StrictDigest,
		lockTimeout:  cfg.LockTimeout,
		stmtTimeout:  cfg.StatementTimeout,
	}

	opts.commit, _ = cmd.Flags().GetBool("commit")

	if cmd.Flags().Changed("lock") {
		opts.lock, _ = cmd.Flags().GetBool("lock")
	}

	if cmd.Flags().Changed("strict-digest") {
		opts.strictDigest, _ = cmd.Flags().GetBool("strict-digest")
	}

	if cmd.Flags().Changed("lock-timeout") {
		opts.lockTimeout, _ = cmd.Flags().GetDuration("lock-timeout")
	}

	if cmd.Flags().Changed("statement-timeout") {
		opts.stmtTimeout, _ = cmd.Flags().GetDuration("statement-timeout")
	}

	return opts
}

func runApply(cmd *cobra.Command, args []string) error {
	cfg := AppConfig
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()
	log := zerolog.Ctx(ctx)

	dsn, err := databaseURL(args, cfg)
	if err != nil {
		return err
	}

	opts := resolveApplyOpts(cmd, cfg)

	units, err := loadUnits(ctx, out, cfg.MigrationsDir)
	if err != nil {
		return err
	}

	sess, err := openSession(ctx, out, cfg, dsn)
	if err != nil {
		return err
	}
	defer sess.Close()

	if opts.lock {
		handle, err := database.TryAcquireLock(ctx, sess.pool, lockKey(cfg))
		if err != nil {
			return err
		}
		defer handle.Release(ctx) //nolint:errcheck // best-effort; closing the pool drops the session anyway

		log.Info().Str("key", lockKey(cfg)).Msg("advisory lock acquired")
	}

	entries, created, err := sess.ledger.Load(ctx, opts.commit)
	if err != nil {
		return err
	}

	if created {
		log.Info().Str("table", cfg.LedgerTable).Msg("created migration ledger")
	}

	plan, err := reconcile.Reconcile(units, entries, reconcile.Options{
		StrictDigest:       opts.strictDigest,
		CheckTransactional: true,
	})
	if err != nil {
		return err
	}

	reportMismatches(ctx, out, plan.Mismatches)

	if plan.UpToDate() {
		fmt.Fprintf(out, "Database is up to date (%d migration(s) applied).\n", len(plan.Applied))

		return nil
	}

	builder, err := executor.NewBuilder(cfg.AppRole, cfg.Schema, sess.ledger.InsertSQL())
	if err != nil {
		return err
	}

	if !opts.commit {
		fmt.Fprintf(out, "No -c/--commit flag given, showing the %d pending migration(s) without applying them.\n\n",
			len(plan.Pending))

		return executor.NewReporter(out, builder).Report(plan.Pending)
	}

	return applyPending(ctx, out, sess, builder, plan, opts)
}

func applyPending(
	ctx context.Context,
	out io.Writer,
	sess *session,
	builder *executor.Builder,
	plan *reconcile.Plan,
	opts applyOpts,
) error {
	applied := 0

	exec := executor.New(sess.pool, sess.ledger, builder,
		executor.WithLockTimeout(opts.lockTimeout),
		executor.WithStatementTimeout(opts.stmtTimeout),
		executor.WithProgressCallback(progressPrinter(out, &applied)),
	)

	if err := exec.Apply(ctx, plan.Pending); err != nil {
		return err
	}

	fmt.Fprintf(out, "\nApply complete: %d applied.\n", applied)

	return nil
}

// progressPrinter renders executor progress events on the operator report.
func progressPrinter(out io.Writer, applied *int) func(executor.ProgressEvent) {
	return func(event executor.ProgressEvent) {
		switch event.Status {
		case executor.StatusStarting:
			fmt.Fprintf(out, "  Applying %s ... ", event.Unit.Name)
		case executor.StatusCompleted:
			fmt.Fprintf(out, "done (%s)\n", event.Duration.Truncate(time.Millisecond))
			*applied++
		case executor.StatusFailed:
			fmt.Fprintf(out, "FAILED\n")
			fmt.Fprintf(out, "    Error: %v\n", event.Error)
		}
	}
}
