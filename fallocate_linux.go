//go:build linux

package bigsort

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile reserves size bytes of disk for a merge output so that a
// full disk fails the pass before any lines are written.
func fallocateFile(file *os.File, size int64) error {
	err := unix.Fallocate(int(file.Fd()), 0, 0, size)
	if err != nil {
		// Fallback to ftruncate if fallocate fails (e.g., tmpfs on old kernels, NFS)
		return unix.Ftruncate(int(file.Fd()), size)
	}
	return nil
}
