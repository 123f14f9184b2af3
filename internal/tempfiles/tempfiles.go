// Package tempfiles manages job-scoped temporary files: every file a job
// creates carries the job prefix, so the job can find its own files and
// sweep them without touching files of other jobs sharing the directory.
package tempfiles

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// ProjectTag starts every job prefix.
const ProjectTag = "big.sort."

// JobPrefix returns a prefix unique to one run: the project tag, a
// nanosecond timestamp and a random component, so that concurrent runs in
// the same directory (even within one process) never collide.
func JobPrefix(now time.Time) string {
	id := uuid.New()
	return fmt.Sprintf("%s%s.%x.", ProjectTag, now.UTC().Format("20060102T150405.000000000"), id[:4])
}

// Create atomically creates a new, empty, uniquely named file in dir whose
// name starts with prefix. The file is open for writing.
func Create(dir, prefix string) (*os.File, error) {
	f, err := os.CreateTemp(dir, prefix+"*")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	return f, nil
}

// List returns the paths of regular files in dir whose names start with
// prefix, ordered by name. Subdirectories are ignored.
func List(dir, prefix string) ([]string, error) {
	return list(dir, prefix, true)
}

func list(dir, prefix string, regularOnly bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if regularOnly && !e.Type().IsRegular() {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	return paths, nil
}

// Sweep deletes every prefixed entry in dir, whatever its type. It keeps
// going after a failed delete and returns one error per entry that could not
// be removed; a listing failure is returned as the only element.
func Sweep(dir, prefix string) []error {
	paths, err := list(dir, prefix, false)
	if err != nil {
		return []error{err}
	}
	var failed []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			failed = append(failed, err)
		}
	}
	return failed
}

// Move relocates src to dst. A rename is attempted first; when src and dst
// are on different filesystems the content is copied and src removed.
func Move(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("move result: %w", err)
	}
	if err := copyFile(src, dst); err != nil {
		return errors.Join(fmt.Errorf("copy result across devices: %w", err), removeIfExists(dst))
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		return errors.Join(err, out.Close())
	}
	if err := out.Sync(); err != nil {
		return errors.Join(err, out.Close())
	}
	return out.Close()
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
