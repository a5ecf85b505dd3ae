package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"time"
)

// ScriptName is the file each unit directory must contain.
const ScriptName = "migration.sql"

// LockFileName is the marker file kept next to the unit directories. It is not a migration.
const LockFileName = "migration_lock.toml"

// namePattern requires a numeric ordering prefix, a separator, and a label
// (e.g., 20240601120000_create_users).
var namePattern = regexp.MustCompile(`^[0-9]+_.+$`) //nolint:gochecknoglobals // compiled once

// Unit is one migration directory discovered on disk.
type Unit struct {
	Name       string    // "20240601120000_create_users", the directory name
	ScriptPath string    // path to <dir>/migration.sql
	SQL        string    // exact contents of the script
	Size       int64     // script size in bytes
	CTime      time.Time // inode change time, UTC, microsecond precision
	MTime      time.Time // modification time, UTC, microsecond precision
	Digest     string    // SHA-256 hex digest of the raw script bytes
}

// ValidName reports whether name carries a numeric ordering prefix followed by
// an underscore and a label.
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// ComputeDigest returns the SHA-256 hex digest of the given bytes.
func ComputeDigest(data []byte) string {
	h := sha256.Sum256(data)

	return hex.EncodeToString(h[:])
}

// normalizeTime converts t to UTC and drops precision PostgreSQL cannot store.
func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
