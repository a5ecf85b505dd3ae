package executor

import (
	"fmt"
	"io"

	"github.com/aqasim81/migration-ledger/internal/migration"
	"github.com/aqasim81/migration-ledger/internal/parser"
)

// Reporter prints what the Executor would run for each pending unit without
// touching the database. It uses the same Builder, so the printed statements
// match the executed ones exactly.
type Reporter struct {
	out     io.Writer
	builder *Builder
}

// NewReporter creates a Reporter writing to out.
func NewReporter(out io.Writer, b *Builder) *Reporter {
	return &Reporter{out: out, builder: b}
}

// Statements returns the rendered statements for pending, in execution order.
func (r *Reporter) Statements(pending []migration.Unit) []string {
	var out []string

	for i := range pending {
		for _, stmt := range r.builder.Build(&pending[i]) {
			out = append(out, stmt.Render())
		}
	}

	return out
}

// Report writes the dry-run listing for pending.
func (r *Reporter) Report(pending []migration.Unit) error {
	for i := range pending {
		u := &pending[i]

		if _, err := fmt.Fprintf(r.out, "Applying %s (%s)\n", u.Name, describeStatements(u.SQL)); err != nil {
			return fmt.Errorf("writing dry-run report: %w", err)
		}

		for _, stmt := range r.builder.Build(u) {
			if _, err := fmt.Fprintf(r.out, "(not) Executing %s:\n%s\n", stmt.Kind, stmt.Render()); err != nil {
				return fmt.Errorf("writing dry-run report: %w", err)
			}
		}
	}

	return nil
}

func describeStatements(sql string) string {
	n, err := parser.StatementCount(sql)
	if err != nil {
		return "does not parse: " + err.Error()
	}

	if n == 1 {
		return "1 statement"
	}

	return fmt.Sprintf("%d statements", n)
}
