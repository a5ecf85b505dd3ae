package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// scaffoldTimeFormat is the ordering prefix used for new units.
const scaffoldTimeFormat = "20060102150405"

var labelPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`) //nolint:gochecknoglobals // compiled once

// Scaffold creates <dir>/<timestamp>_<label>/migration.sql containing sql and
// returns the new unit directory path. It never overwrites an existing unit.
func Scaffold(dir, label string, now time.Time, sql string) (string, error) {
	if !labelPattern.MatchString(label) {
		return "", fmt.Errorf("%w: label %q must match %s", ErrMalformedName, label, labelPattern)
	}

	name := now.UTC().Format(scaffoldTimeFormat) + "_" + label
	unitDir := filepath.Join(dir, name)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating migrations directory %s: %w", dir, err)
	}

	if err := os.Mkdir(unitDir, 0o755); err != nil {
		if os.IsExist(err) {
			return "", fmt.Errorf("%w: %s", ErrUnitExists, unitDir)
		}

		return "", fmt.Errorf("creating migration directory %s: %w", unitDir, err)
	}

	path := filepath.Join(unitDir, ScriptName)
	if err := os.WriteFile(path, []byte(sql), 0o644); err != nil { //nolint:gosec // migration scripts are not secret
		return "", fmt.Errorf("writing migration file %s: %w", path, err)
	}

	return unitDir, nil
}
