package migration

import (
	"fmt"
	"os"
	"path/filepath"
)

// LoadFromDir scans dir for unit directories and returns them sorted by name.
// The lock marker file and any other non-directory entries are skipped. A
// directory whose name lacks the numeric ordering prefix is a fatal error,
// since apply order depends on it.
func LoadFromDir(dir string) ([]Unit, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory %s: %w", dir, err)
	}

	units := make([]Unit, 0, len(entries))

	for _, entry := range entries {
		if entry.Name() == LockFileName || !entry.IsDir() {
			continue
		}

		if !ValidName(entry.Name()) {
			return nil, fmt.Errorf("%w: %s", ErrMalformedName, filepath.Join(dir, entry.Name()))
		}

		u, err := readUnit(dir, entry.Name())
		if err != nil {
			return nil, err
		}

		units = append(units, u)
	}

	// os.ReadDir already sorts by filename; Sort keeps the guarantee explicit.
	return Sort(units), nil
}

// readUnit reads the script of a single unit directory and captures its
// filesystem metadata.
func readUnit(dir, name string) (Unit, error) {
	path := filepath.Join(dir, name, ScriptName)

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Unit{}, fmt.Errorf("%w: %s", ErrMissingScript, path)
		}

		return Unit{}, fmt.Errorf("stat migration file %s: %w", path, err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Unit{}, fmt.Errorf("reading migration file %s: %w", path, err)
	}

	ctime, err := changeTime(path, info)
	if err != nil {
		return Unit{}, err
	}

	return Unit{
		Name:       name,
		ScriptPath: path,
		SQL:        string(data),
		Size:       int64(len(data)),
		CTime:      normalizeTime(ctime),
		MTime:      normalizeTime(info.ModTime()),
		Digest:     ComputeDigest(data),
	}, nil
}
