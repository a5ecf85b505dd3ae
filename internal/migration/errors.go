package migration

import "errors"

// ErrMalformedName indicates a unit directory lacks the numeric ordering prefix.
var ErrMalformedName = errors.New("malformed migration name")

// ErrMissingScript indicates a unit directory has no migration.sql.
var ErrMissingScript = errors.New("migration script not found")

// ErrUnitExists indicates a scaffold target directory already exists.
var ErrUnitExists = errors.New("migration directory already exists")
