package database

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
)

// identifierPattern is the allow-list for role, schema, and table names that end
// up in DDL/DCL text, where bind parameters cannot be used.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]{0,62}$`) //nolint:gochecknoglobals // compiled once

// ValidIdentifier reports whether name passes the identifier allow-list.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// QuoteIdentifier validates name and returns it as a quoted SQL identifier.
// The name is folded to lower case first, as PostgreSQL does for unquoted
// identifiers, so "Nodejs" names the same role as nodejs.
func QuoteIdentifier(name string) (string, error) {
	if !ValidIdentifier(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidIdentifier, name)
	}

	return pgx.Identifier{strings.ToLower(name)}.Sanitize(), nil
}
