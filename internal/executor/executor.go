package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/aqasim81/migration-ledger/internal/ledger"
	"github.com/aqasim81/migration-ledger/internal/migration"
)

// Progress status constants reported via ProgressEvent.
const (
	StatusStarting  = "starting"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ProgressEvent is emitted by the executor for each unit processed.
type ProgressEvent struct {
	Unit     *migration.Unit
	Status   string
	Duration time.Duration
	Error    error
}

// Recorder appends ledger entries inside the caller's transaction.
type Recorder interface {
	Append(ctx context.Context, tx ledger.Execer, e ledger.Entry) error
}

// txBeginFunc opens the per-unit transaction.
type txBeginFunc func(ctx context.Context) (pgx.Tx, error)

// Executor applies pending units one at a time, each in its own transaction
// together with the grant refresh and its ledger record.
type Executor struct {
	begin            txBeginFunc
	recorder         Recorder
	builder          *Builder
	lockTimeout      time.Duration
	statementTimeout time.Duration
	onProgress       func(ProgressEvent)
	onStatement      func(Statement)
}

// Option configures an Executor.
type Option func(*Executor)

// WithLockTimeout sets the per-transaction lock_timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(e *Executor) { e.lockTimeout = d }
}

// WithStatementTimeout sets the per-transaction statement_timeout.
func WithStatementTimeout(d time.Duration) Option {
	return func(e *Executor) { e.statementTimeout = d }
}

// WithProgressCallback sets a function called for each unit processed.
func WithProgressCallback(fn func(ProgressEvent)) Option {
	return func(e *Executor) { e.onProgress = fn }
}

// WithStatementObserver sets a function called with every statement right
// before it is executed.
func WithStatementObserver(fn func(Statement)) Option {
	return func(e *Executor) { e.onStatement = fn }
}

// New creates an Executor. db is normally a *pgxpool.Pool.
func New(db TxBeginner, r Recorder, b *Builder, opts ...Option) *Executor {
	e := &Executor{
		recorder: r,
		builder:  b,
	}

	if db != nil {
		e.begin = db.Begin
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Apply executes the pending units strictly in the given order. The first
// failure rolls back that unit and stops; later units are never attempted.
func (e *Executor) Apply(ctx context.Context, pending []migration.Unit) error {
	for i := range pending {
		if err := e.applyOne(ctx, &pending[i]); err != nil {
			return err
		}
	}

	return nil
}

// applyOne runs BEGIN, the unit SQL, the grants, the ledger insert, and COMMIT.
func (e *Executor) applyOne(ctx context.Context, u *migration.Unit) error {
	log := zerolog.Ctx(ctx).With().Str("unit", u.Name).Logger()

	e.fireProgress(ProgressEvent{Unit: u, Status: StatusStarting})
	log.Debug().Str("script", u.ScriptPath).Int64("size", u.Size).Msg("applying migration")

	start := time.Now()
	err := execInTransaction(ctx, e.begin, func(tx pgx.Tx) error {
		return e.runStatements(ctx, tx, u)
	})
	duration := time.Since(start)

	if err != nil {
		e.fireProgress(ProgressEvent{Unit: u, Status: StatusFailed, Duration: duration, Error: err})
		log.Error().Err(err).Dur("duration", duration).Msg("migration rolled back")

		return fmt.Errorf("%w: %s: %w", ErrExecutionFailed, u.Name, err)
	}

	e.fireProgress(ProgressEvent{Unit: u, Status: StatusCompleted, Duration: duration})
	log.Info().Dur("duration", duration).Msg("migration committed")

	return nil
}

func (e *Executor) runStatements(ctx context.Context, tx pgx.Tx, u *migration.Unit) error {
	if e.lockTimeout > 0 {
		if err := SetLockTimeout(ctx, tx, e.lockTimeout); err != nil {
			return err
		}
	}

	if e.statementTimeout > 0 {
		if err := SetStatementTimeout(ctx, tx, e.statementTimeout); err != nil {
			return err
		}
	}

	for _, stmt := range e.builder.Build(u) {
		if e.onStatement != nil {
			e.onStatement(stmt)
		}

		if stmt.Kind == KindRecord {
			if err := e.recorder.Append(ctx, tx, ledger.NewEntry(u)); err != nil {
				return err
			}

			continue
		}

		if _, err := tx.Exec(ctx, stmt.SQL); err != nil {
			return fmt.Errorf("executing %s statement: %w", stmt.Kind, err)
		}
	}

	return nil
}

func (e *Executor) fireProgress(event ProgressEvent) {
	if e.onProgress != nil {
		e.onProgress(event)
	}
}
