package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/aqasim81/migration-ledger/internal/migration"
)

var newCmd = &cobra.Command{ //nolint:gochecknoglobals // standard Cobra pattern
	Use:   "new <label>",
	Short: "Create an empty migration directory",
	Long: `Create <migrations-dir>/<YYYYmmddHHMMSS>_<label>/migration.sql. The
script is empty unless --from names a file to copy it from.`,
	Args: cobra.ExactArgs(1),
	RunE: runNew,
}

func init() { //nolint:gochecknoinits // standard Cobra pattern for flag registration
	newCmd.Flags().String("from", "", "initial SQL file to copy into the new migration")
	rootCmd.AddCommand(newCmd)
}

// now is replaced in tests.
var now = time.Now //nolint:gochecknoglobals // test seam

func runNew(cmd *cobra.Command, args []string) error {
	cfg := AppConfig

	var sql string

	if from, _ := cmd.Flags().GetString("from"); from != "" {
		data, err := os.ReadFile(from)
		if err != nil {
			return fmt.Errorf("reading %s: %w", from, err)
		}

		sql = string(data)
	}

	path, err := migration.Scaffold(cfg.MigrationsDir, args[0], now(), sql)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)

	return nil
}
