package ledger

import "fmt"

// DefaultTable is the ledger table name other tooling expects.
const DefaultTable = "migrations"

// extensionSQL provides gen_random_uuid() on servers older than PostgreSQL 13.
const extensionSQL = `CREATE EXTENSION IF NOT EXISTS pgcrypto`

// createTableSQL returns the DDL for the ledger table. table must already be quoted.
func createTableSQL(table string) string {
	return fmt.Sprintf(`CREATE TABLE %s (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    created TIMESTAMP DEFAULT NOW(),
    name TEXT NOT NULL,
    size INTEGER NOT NULL,
    ctime TIMESTAMP NOT NULL,
    mtime TIMESTAMP NOT NULL,
    digest TEXT NOT NULL
)`, table)
}
