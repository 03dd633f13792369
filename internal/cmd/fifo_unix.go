//go:build linux || darwin

package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sys/unix"
)

// ensureFIFO creates a named pipe at path unless something already exists
// there.
func ensureFIFO(path string) error {
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := unix.Mkfifo(path, 0o600); err != nil {
		return fmt.Errorf("create fifo %s: %w", path, err)
	}
	return nil
}
