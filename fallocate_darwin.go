//go:build darwin

package bigsort

import (
	"os"

	"golang.org/x/sys/unix"
)

// fallocateFile reserves size bytes of disk for a merge output.
// On macOS, uses fcntl F_PREALLOCATE for space reservation.
func fallocateFile(file *os.File, size int64) error {
	fst := unix.Fstore_t{
		Flags:   unix.F_ALLOCATEALL,
		Posmode: unix.F_PEOFPOSMODE,
		Offset:  0,
		Length:  size,
	}

	if err := unix.FcntlFstore(file.Fd(), unix.F_PREALLOCATE, &fst); err != nil {
		return unix.Ftruncate(int(file.Fd()), size)
	}
	return nil
}
