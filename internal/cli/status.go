package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/aqasim81/migration-ledger/internal/parser"
	"github.com/aqasim81/migration-ledger/internal/reconcile"
)

var statusCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "status [database-url]",
	Short: "Show migration status",
	Long: `Display applied and pending migrations and any applied migration whose
script changed since it was recorded. Read-only: the ledger table is never created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	printStatus(out, plan)

	return nil
}

// printStatus writes the applied, pending and changed sections of plan.
func printStatus(out io.Writer, plan *reconcile.Plan) {
	fmt.Fprintf(out, "\nApplied (%d):\n", len(plan.Applied))

	for _, e := range plan.Applied {
		fmt.Fprintf(out, "  %s  %s\n", e.Created.Format("2006-01-02 15:04:05"), e.Name)
	}

	fmt.Fprintf(out, "\nPending (%d):\n", len(plan.Pending))

	for i := range plan.Pending {
		u := &plan.Pending[i]

		n, err := parser.StatementCount(u.SQL)
		if err != nil {
			fmt.Fprintf(out, "  %s  (does not parse)\n", u.Name)
			continue
		}

		fmt.Fprintf(out, "  %s  (%d statement(s))\n", u.Name, n)
	}

	if len(plan.Mismatches) > 0 {
		fmt.Fprintf(out, "\nChanged since applied (%d):\n", len(plan.Mismatches))

		for _, m := range plan.Mismatches {
			fmt.Fprintf(out, "  %s  recorded %s, now %s\n", m.Name, short(m.Recorded), short(m.Current))
		}
	}

	if plan.UpToDate() {
		fmt.Fprintln(out, "\nDatabase is up to date.")
	}
}
