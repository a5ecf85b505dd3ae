package reconcile

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aqasim81/migration-ledger/internal/ledger"
	"github.com/aqasim81/migration-ledger/internal/migration"
	"github.com/aqasim81/migration-ledger/internal/parser"
)

// Mismatch describes an applied unit whose current script digest differs from
// the digest recorded when it was applied.
type Mismatch struct {
	Name     string
	Recorded string
	Current  string
}

// Plan is the outcome of comparing source units with the ledger.
type Plan struct {
	Units      []migration.Unit // all units in source, ascending
	Applied    []ledger.Entry   // ledger entries, as fetched
	Pending    []migration.Unit // units without a ledger entry, ascending
	Mismatches []Mismatch       // applied units whose digest changed, ascending
}

// UpToDate reports whether nothing is pending.
func (p *Plan) UpToDate() bool {
	return len(p.Pending) == 0
}

// Options tunes reconciliation strictness.
type Options struct {
	// StrictDigest turns digest mismatches into a fatal error instead of a
	// reported warning.
	StrictDigest bool
	// CheckTransactional rejects pending units whose SQL cannot run inside a
	// transaction block.
	CheckTransactional bool
}

// Reconcile subtracts ledger entries from source units by name. Every entry
// must match a unit still present in source; a missing one is a deleted
// migration and stops the run before anything is applied. The remainder keeps
// the ascending order of units.
func Reconcile(units []migration.Unit, entries []ledger.Entry, opts Options) (*Plan, error) {
	if len(units) == 0 {
		return nil, ErrNoMigrations
	}

	sorted := migration.Sort(units)

	remaining := make(map[string]*migration.Unit, len(sorted))
	for i := range sorted {
		remaining[sorted[i].Name] = &sorted[i]
	}

	seen := make(map[string]bool, len(entries))
	plan := &Plan{Units: sorted, Applied: entries}

	for _, e := range entries {
		u, ok := remaining[e.Name]
		if !ok {
			if seen[e.Name] {
				return nil, &IntegrityError{Err: ErrDuplicateEntry, Entry: e}
			}

			return nil, &IntegrityError{Err: ErrDeletedMigration, Entry: e}
		}

		delete(remaining, e.Name)
		seen[e.Name] = true

		if u.Digest != e.Digest {
			if opts.StrictDigest {
				return nil, &IntegrityError{Err: ErrDigestMismatch, Entry: e}
			}

			plan.Mismatches = append(plan.Mismatches, Mismatch{Name: e.Name, Recorded: e.Digest, Current: u.Digest})
		}
	}

	for _, u := range sorted {
		if _, ok := remaining[u.Name]; ok {
			plan.Pending = append(plan.Pending, u)
		}
	}

	sortMismatches(plan.Mismatches)

	if opts.CheckTransactional {
		if err := checkTransactional(plan.Pending); err != nil {
			return nil, err
		}
	}

	return plan, nil
}

// checkTransactional rejects the first pending unit containing statements
// that cannot share a transaction with its grants and ledger record. Scripts
// the parser cannot read are left for the database to reject at apply time.
func checkTransactional(pending []migration.Unit) error {
	for i := range pending {
		found, err := parser.NonTransactional(pending[i].SQL)
		if err != nil {
			continue
		}

		if len(found) > 0 {
			return fmt.Errorf("%w: %s contains %s", ErrNonTransactional, pending[i].Name, strings.Join(found, ", "))
		}
	}

	return nil
}

func sortMismatches(ms []Mismatch) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Name < ms[j].Name })
}
