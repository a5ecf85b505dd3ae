package reconcile

import (
	"errors"
	"fmt"

	"github.com/aqasim81/migration-ledger/internal/ledger"
)

// ErrNoMigrations indicates the source directory holds no units at all.
var ErrNoMigrations = errors.New("no migrations found")

// ErrDeletedMigration indicates the ledger records a unit that no longer exists in source.
var ErrDeletedMigration = errors.New("deleted migration")

// ErrDuplicateEntry indicates the ledger records the same unit more than once.
var ErrDuplicateEntry = errors.New("duplicate ledger entry")

// ErrDigestMismatch indicates an applied unit's script changed since it was recorded.
var ErrDigestMismatch = errors.New("migration digest mismatch")

// ErrNonTransactional indicates a pending unit contains statements that cannot
// run inside the per-unit transaction.
var ErrNonTransactional = errors.New("migration cannot run inside a transaction")

// IntegrityError carries the ledger entry that broke a reconciliation invariant.
type IntegrityError struct {
	Err   error
	Entry ledger.Entry
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("%v: %s (id=%s, applied=%s, digest=%s)",
		e.Err, e.Entry.Name, e.Entry.ID, e.Entry.Created.Format("2006-01-02 15:04:05"), e.Entry.Digest)
}

func (e *IntegrityError) Unwrap() error { return e.Err }
