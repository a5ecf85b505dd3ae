package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aqasim81/migration-ledger/internal/reconcile"
)

var verifyCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "verify [database-url]",
	Short: "Check applied migrations against their recorded digests",
	Long: `Compare the SHA-256 digest of every applied migration script with the
digest recorded in the ledger. Exits non-zero when any of them changed or when
the ledger records a migration missing from the source directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runVerify,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	cfg := AppConfig
	ctx := commandContext(cmd)
	out := cmd.OutOrStdout()

	dsn, err := databaseURL(args, cfg)
	if err != nil {
		return err
	}

	units, err := loadUnits(ctx, out, cfg.MigrationsDir)
	if err != nil {
		return err
	}

	sess, err := openSession(ctx, out, cfg, dsn)
	if err != nil {
		return err
	}
	defer sess.Close()

	entries, _, err := sess.ledger.Load(ctx, false)
	if err != nil {
		return err
	}

	plan, err := reconcile.Reconcile(units, entries, reconcile.Options{})
	if err != nil {
		return err
	}

	return verifyPlan(ctx, out, plan)
}

// verifyPlan reports mismatches and turns any of them into an error.
func verifyPlan(ctx context.Context, out io.Writer, plan *reconcile.Plan) error {
	if len(plan.Mismatches) == 0 {
		fmt.Fprintf(out, "All %d applied migration(s) match their source.\n", len(plan.Applied))

		return nil
	}

	reportMismatches(ctx, out, plan.Mismatches)

	return fmt.Errorf("%w: %d of %d applied migration(s) changed",
		reconcile.ErrDigestMismatch, len(plan.Mismatches), len(plan.Applied))
}
