package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/aqasim81/migration-ledger/internal/database"
	"github.com/aqasim81/migration-ledger/internal/migration"
)

// Entry is one row of the ledger table.
type Entry struct {
	ID      uuid.UUID
	Created time.Time
	Name    string
	Size    int64
	CTime   time.Time
	MTime   time.Time
	Digest  string
}

// NewEntry copies the recorded fields from a unit about to be applied.
func NewEntry(u *migration.Unit) Entry {
	return Entry{
		Name:   u.Name,
		Size:   u.Size,
		CTime:  u.CTime,
		MTime:  u.MTime,
		Digest: u.Digest,
	}
}

// InsertArgs returns the bind arguments for InsertSQL, in column order.
func (e Entry) InsertArgs() []any {
	return []any{e.Name, e.Size, e.CTime, e.MTime, e.Digest}
}

// DB is the subset of pgxpool.Pool / pgx.Conn the ledger needs.
type DB interface {
	Execer
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Execer executes a statement; pgx.Tx satisfies it.
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Ledger manages the table recording which migration units have been applied.
type Ledger struct {
	db    DB
	table string // quoted identifier
}

// New creates a Ledger over the given table. The name is validated against
// the identifier allow-list.
func New(db DB, table string) (*Ledger, error) {
	quoted, err := database.QuoteIdentifier(table)
	if err != nil {
		return nil, fmt.Errorf("ledger table: %w", err)
	}

	return &Ledger{db: db, table: quoted}, nil
}

// InsertSQL is the parameterized statement Append executes.
func (l *Ledger) InsertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (name, size, ctime, mtime, digest) VALUES ($1, $2, $3, $4, $5)`, l.table)
}

// FetchAll returns every ledger entry. Order is by insertion time for display
// only; callers must not rely on it. Returns ErrLedgerMissing when the table
// has not been created yet.
func (l *Ledger) FetchAll(ctx context.Context) ([]Entry, error) {
	rows, err := l.db.Query(ctx, fmt.Sprintf(
		`SELECT id, created, name, size, ctime, mtime, digest FROM %s ORDER BY created, name`, l.table,
	))
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e       Entry
			created *time.Time
		)

		if scanErr := row.Scan(&e.ID, &created, &e.Name, &e.Size, &e.CTime, &e.MTime, &e.Digest); scanErr != nil {
			return Entry{}, scanErr
		}

		if created != nil {
			e.Created = *created
		}

		return e, nil
	})
	if err != nil {
		return nil, classify(err)
	}

	return entries, nil
}

// InitializeIfAbsent creates the pgcrypto extension and the ledger table in one
// transaction. Callers invoke it after FetchAll reported ErrLedgerMissing
// rather than pre-checking, so there is no window between check and use.
func (l *Ledger) InitializeIfAbsent(ctx context.Context) error {
	tx, err := l.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrLedgerInit, err)
	}

	defer tx.Rollback(ctx) //nolint:errcheck // rollback on committed tx returns ErrTxClosed

	if _, err := tx.Exec(ctx, extensionSQL); err != nil {
		return fmt.Errorf("%w: %w", ErrLedgerInit, err)
	}

	if _, err := tx.Exec(ctx, createTableSQL(l.table)); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.DuplicateTable {
			return nil
		}

		return fmt.Errorf("%w: %w", ErrLedgerInit, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrLedgerInit, err)
	}

	return nil
}

// Load fetches all entries. When the table is missing it is created if create
// is true; either way an empty ledger is returned. Dry runs pass false so they
// never write.
func (l *Ledger) Load(ctx context.Context, create bool) (entries []Entry, created bool, err error) {
	entries, err = l.FetchAll(ctx)
	if err == nil {
		return entries, false, nil
	}

	if !errors.Is(err, ErrLedgerMissing) {
		return nil, false, err
	}

	if !create {
		return nil, false, nil
	}

	if err := l.InitializeIfAbsent(ctx); err != nil {
		return nil, false, err
	}

	return nil, true, nil
}

// Append inserts e as part of the caller's transaction. It does not commit.
func (l *Ledger) Append(ctx context.Context, tx Execer, e Entry) error {
	if _, err := tx.Exec(ctx, l.InsertSQL(), e.InsertArgs()...); err != nil {
		return fmt.Errorf("recording migration %s: %w", e.Name, err)
	}

	return nil
}

// classify maps undefined_table to ErrLedgerMissing and wraps everything else.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UndefinedTable {
		return fmt.Errorf("%w: %w", ErrLedgerMissing, err)
	}

	return fmt.Errorf("querying migration ledger: %w", err)
}
