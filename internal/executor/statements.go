package executor

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aqasim81/migration-ledger/internal/database"
	"github.com/aqasim81/migration-ledger/internal/ledger"
	"github.com/aqasim81/migration-ledger/internal/migration"
)

// Statement kinds, in the order they run for each unit.
const (
	KindMigration = "migration"
	KindGrant     = "grant"
	KindRecord    = "record"
)

// timestampLiteralLayout matches how PostgreSQL prints a TIMESTAMP value.
const timestampLiteralLayout = "2006-01-02 15:04:05.999999"

var placeholderPattern = regexp.MustCompile(`\$([0-9]+)`) //nolint:gochecknoglobals // compiled once

// Statement is one SQL statement the applier executes for a unit.
type Statement struct {
	Kind string
	SQL  string
	Args []any
}

// Render returns the statement with bind parameters replaced by SQL literals.
// The dry-run report prints exactly this text.
func (s Statement) Render() string {
	if len(s.Args) == 0 {
		return s.SQL
	}

	return placeholderPattern.ReplaceAllStringFunc(s.SQL, func(ph string) string {
		n, err := strconv.Atoi(ph[1:])
		if err != nil || n < 1 || n > len(s.Args) {
			return ph
		}

		return literal(s.Args[n-1])
	})
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case string:
		return quoteLiteral(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case time.Time:
		return quoteLiteral(x.UTC().Format(timestampLiteralLayout))
	default:
		return quoteLiteral(fmt.Sprint(x))
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Builder produces the statement list for a unit. The applier and the dry-run
// reporter share one Builder so both see identical statements.
type Builder struct {
	grantSQL  string
	insertSQL string
}

// NewBuilder validates the role and schema identifiers and prepares the grant
// statement. insertSQL is the ledger's parameterized insert.
func NewBuilder(role, schema, insertSQL string) (*Builder, error) {
	quotedRole, err := database.QuoteIdentifier(role)
	if err != nil {
		return nil, fmt.Errorf("application role: %w", err)
	}

	quotedSchema, err := database.QuoteIdentifier(schema)
	if err != nil {
		return nil, fmt.Errorf("schema: %w", err)
	}

	return &Builder{
		grantSQL:  GrantSQL(quotedRole, quotedSchema),
		insertSQL: insertSQL,
	}, nil
}

// GrantSQL returns the privilege refresh for the application role. New tables
// and sequences created by a migration are not covered by earlier grants.
// Both arguments must already be quoted identifiers.
func GrantSQL(role, schema string) string {
	return "GRANT USAGE, SELECT ON ALL SEQUENCES IN SCHEMA " + schema + " TO " + role + ";\n" +
		"GRANT SELECT, INSERT, UPDATE ON ALL TABLES IN SCHEMA " + schema + " TO " + role + ";"
}

// Build returns the migration, grant, and record statements for u.
func (b *Builder) Build(u *migration.Unit) []Statement {
	return []Statement{
		{Kind: KindMigration, SQL: u.SQL},
		{Kind: KindGrant, SQL: b.grantSQL},
		{Kind: KindRecord, SQL: b.insertSQL, Args: ledger.NewEntry(u).InsertArgs()},
	}
}
