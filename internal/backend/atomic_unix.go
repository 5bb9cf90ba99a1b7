//go:build !windows

package backend

import (
	"os"

	"github.com/google/renameio/v2"
)

// writeFileAtomic writes through a temp file in the same directory and renames
// it over the target, so readers never see a truncated record.
func writeFileAtomic(filename string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(filename, data, perm)
}
