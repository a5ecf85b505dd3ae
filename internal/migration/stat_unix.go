//go:build unix

package migration

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// changeTime returns the inode change time of path. On unix this is the
// st_ctime field, which os.FileInfo does not expose.
func changeTime(path string, _ os.FileInfo) (time.Time, error) {
	var st unix.Stat_t
	if err := unix.Stat(path, &st); err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", path, err)
	}

	sec, nsec := st.Ctim.Unix()

	return time.Unix(sec, nsec), nil
}
