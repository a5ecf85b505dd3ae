package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/aqasim81/migration-ledger/internal/ledger"
)

// SetLockTimeout sets lock_timeout for the current transaction only, so a
// migration fails fast instead of queueing behind long-held locks.
func SetLockTimeout(ctx context.Context, tx ledger.Execer, timeout time.Duration) error {
	sql := fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", timeout.Milliseconds())

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("setting lock_timeout: %w", err)
	}

	return nil
}

// SetStatementTimeout sets statement_timeout for the current transaction only.
func SetStatementTimeout(ctx context.Context, tx ledger.Execer, timeout time.Duration) error {
	sql := fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", timeout.Milliseconds())

	if _, err := tx.Exec(ctx, sql); err != nil {
		return fmt.Errorf("setting statement_timeout: %w", err)
	}

	return nil
}
