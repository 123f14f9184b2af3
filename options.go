package bigsort

import (
	"os"

	"go.uber.org/zap"
)

const (
	// DefaultMaxOpenFiles caps how many files the merge stage holds open at
	// once when no limit is configured.
	DefaultMaxOpenFiles = 10000

	minBatch        = 2
	minMaxOpenFiles = 3 // two runs plus the merge output
)

// Option is a functional option for configuring a Sorter.
type Option func(*config)

type config struct {
	workers      int
	workingDir   string
	maxOpenFiles int
	compress     bool // zstd-compress intermediate runs
	mmapInput    bool // read input files through mmap
	logger       *zap.Logger
}

func defaultConfig() *config {
	return &config{
		workers:      1, // Default to single-threaded; use WithWorkers(n) to parallelize
		workingDir:   os.TempDir(),
		maxOpenFiles: DefaultMaxOpenFiles,
		logger:       zap.NewNop(),
	}
}

// WithWorkers sets the requested number of parallel chunk sorters.
// The effective count is further capped by the batch size and the number
// of input files.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithWorkingDir sets the directory for temporary run files.
// The directory must exist. Runs of different jobs may share it.
func WithWorkingDir(dir string) Option {
	return func(c *config) {
		c.workingDir = dir
	}
}

// WithMaxOpenFiles limits how many files are open at once during the merge
// stage. The limit counts the output of a merge group as well as its runs, so
// at most n-1 runs are merged together.
func WithMaxOpenFiles(n int) Option {
	return func(c *config) {
		c.maxOpenFiles = n
	}
}

// WithCompression enables zstd compression of intermediate runs.
// Trades CPU for temp disk space; the result file is always plain text.
func WithCompression(enabled bool) Option {
	return func(c *config) {
		c.compress = enabled
	}
}

// WithMmapInput reads input files through a read-only memory map instead of
// buffered reads.
func WithMmapInput(enabled bool) Option {
	return func(c *config) {
		c.mmapInput = enabled
	}
}

// WithLogger sets the logger. A nil logger disables logging.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l == nil {
			l = zap.NewNop()
		}
		c.logger = l
	}
}
