//go:build !unix

package migration

import (
	"os"
	"time"
)

// changeTime falls back to the modification time where no ctime is available.
func changeTime(_ string, info os.FileInfo) (time.Time, error) {
	return info.ModTime(), nil
}
