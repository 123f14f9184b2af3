//go:build linux

package bigsort

import "golang.org/x/sys/unix"

// fadviseSequential hints to the kernel that the file will be read once,
// front to back. Applied to input files and to runs opened for merging.
// Best-effort: errors are silently ignored.
func fadviseSequential(fd int, offset, length int64) {
	_ = unix.Fadvise(fd, offset, length, unix.FADV_SEQUENTIAL)
}
