package bigsort

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	sorterrors "github.com/tamirms/bigsort/errors"
)

// CollectInputs expands paths into the flat list of files to sort.
//
// A file path is taken as is. A directory contributes its regular files in
// name order; a directory holding another directory is rejected with
// ErrNestedDirectory. Every returned file has been opened once to confirm it
// is readable. A path that does not exist fails with ErrInputNotFound.
func CollectInputs(paths []string) ([]string, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("%w: %s", sorterrors.ErrInputNotFound, p)
			}
			return nil, err
		}

		if !info.IsDir() {
			if err := checkReadable(p); err != nil {
				return nil, err
			}
			files = append(files, p)
			continue
		}

		entries, err := os.ReadDir(p)
		if err != nil {
			return nil, fmt.Errorf("read input directory: %w", err)
		}
		for _, e := range entries {
			child := filepath.Join(p, e.Name())
			if e.IsDir() {
				return nil, fmt.Errorf("%w: %s", sorterrors.ErrNestedDirectory, child)
			}
			if err := checkReadable(child); err != nil {
				return nil, err
			}
			files = append(files, child)
		}
	}
	return files, nil
}

func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("input not readable: %w", err)
	}
	return f.Close()
}
