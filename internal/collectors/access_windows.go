//go:build windows

package collectors

import (
	"os"
)

// readAccess opens path read-only
func readAccess(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}
