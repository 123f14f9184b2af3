//go:build !linux && !darwin

package bigsort

import "os"

// fallocateFile is best-effort on platforms without native preallocation:
// it extends the file, which may not reserve blocks on every filesystem.
func fallocateFile(file *os.File, size int64) error {
	return file.Truncate(size)
}
