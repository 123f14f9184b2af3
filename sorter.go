package bigsort

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	sorterrors "github.com/tamirms/bigsort/errors"
	"github.com/tamirms/bigsort/internal/tempfiles"
)

// Sorter sorts the lines of a set of input files into one result file,
// holding at most batch lines in memory and keeping at most maxOpenFiles
// files open during the merge.
//
// A Sorter is one job: it owns a unique file prefix in the working
// directory, runs once, and removes every prefixed file it created before
// Sort returns.
//
// Usage:
//
//	s, err := bigsort.New(inputs, 1_000_000, "sorted.txt",
//	    bigsort.WithWorkers(4), bigsort.WithWorkingDir("/var/tmp"))
//	if err != nil { return err }
//	stats, err := s.Sort(ctx)
type Sorter struct {
	cfg            *config
	inputs         []string
	batch          int
	resultPath     string
	prefix         string
	workers        int
	batchPerWorker int
	fanIn          int
	logger         *zap.Logger
	used           bool
}

// Stats describes a finished (or failed) run.
type Stats struct {
	Workers        int
	BatchPerWorker int
	Runs           int    // runs written by the sort stage
	MergePasses    int    // 0 when there was nothing to merge
	MaxOpenReaders int    // most runs open at once during the merge
	Lines          int64  // lines in the result file
	ResultChecksum uint64 // xxHash64 of the result file bytes
	Duration       time.Duration

	// CleanupFailures lists temp files that could not be removed. They do
	// not affect the outcome of the run.
	CleanupFailures []error
}

// New validates the configuration and prepares a sort job.
//
// inputs is the flat list of files to sort (see CollectInputs). batch is the
// maximum number of lines held in memory across all workers. resultPath
// receives the sorted output.
func New(inputs []string, batch int, resultPath string, opts ...Option) (*Sorter, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.workers < 1 {
		return nil, fmt.Errorf("%w: got %d", sorterrors.ErrInvalidWorkers, cfg.workers)
	}
	if batch < minBatch {
		return nil, fmt.Errorf("%w: got %d", sorterrors.ErrInvalidBatch, batch)
	}
	if cfg.maxOpenFiles < minMaxOpenFiles {
		return nil, fmt.Errorf("%w: got %d", sorterrors.ErrInvalidMaxOpenFiles, cfg.maxOpenFiles)
	}
	if resultPath == "" {
		return nil, sorterrors.ErrEmptyResultPath
	}
	info, err := os.Stat(cfg.workingDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", sorterrors.ErrWorkingDirNotFound, cfg.workingDir)
	}

	workers := effectiveWorkers(cfg.workers, batch, len(inputs))
	batchPerWorker := batch / workers
	if batchPerWorker < 1 {
		return nil, fmt.Errorf("%w: batch %d over %d workers", sorterrors.ErrBatchTooSmall, batch, workers)
	}

	prefix := tempfiles.JobPrefix(time.Now())
	return &Sorter{
		cfg:            cfg,
		inputs:         append([]string(nil), inputs...),
		batch:          batch,
		resultPath:     resultPath,
		prefix:         prefix,
		workers:        workers,
		batchPerWorker: batchPerWorker,
		fanIn:          fanIn(cfg.maxOpenFiles, batch),
		logger:         cfg.logger.With(zap.String("job", prefix)),
	}, nil
}

// effectiveWorkers caps the requested worker count by the batch (so the
// workers' buffers together never exceed it) and by the file count (so no
// worker starts with nothing to take). Zero files still get one worker.
func effectiveWorkers(requested, batch, files int) int {
	if files == 0 {
		return 1
	}
	return min(requested, batch, files)
}

// fanIn is the most runs merged in one group: one handle of maxOpenFiles is
// kept for the group's output, and each open run buffers one line of batch.
func fanIn(maxOpenFiles, batch int) int {
	return min(maxOpenFiles-1, batch)
}

// Prefix returns the job prefix carried by every temp file of this job.
func (s *Sorter) Prefix() string { return s.prefix }

// Workers returns the effective number of chunk sorters.
func (s *Sorter) Workers() int { return s.workers }

// BatchPerWorker returns the most lines one chunk sorter holds at a time.
func (s *Sorter) BatchPerWorker() int { return s.batchPerWorker }

// FanIn returns the most runs merged together in one group.
func (s *Sorter) FanIn() int { return s.fanIn }

// Sort runs the sort stage, then the merge stage, then removes the job's
// temp files. The merge stage never starts before every chunk sorter has
// finished. On failure nothing is written to the result path and the
// returned error wraps ErrSortStageFailed or ErrMergeStageFailed.
//
// Empty input (no files, or only empty files) succeeds without creating a
// result file.
func (s *Sorter) Sort(ctx context.Context) (stats Stats, err error) {
	stats = Stats{Workers: s.workers, BatchPerWorker: s.batchPerWorker}
	if s.used {
		return stats, sorterrors.ErrSorterUsed
	}
	s.used = true
	start := time.Now()
	defer func() { stats.Duration = time.Since(start) }()

	s.logger.Info("sort stage started",
		zap.Int("inputs", len(s.inputs)),
		zap.Int("batch", s.batch),
		zap.Int("workers", s.workers),
		zap.Int("batchPerWorker", s.batchPerWorker),
		zap.String("workingDir", s.cfg.workingDir))

	sorted, err := s.runSortStage(ctx)
	stats.Runs = sorted.runs
	if err != nil {
		s.logger.Error("sort stage failed", zap.Error(err))
		stats.CleanupFailures = s.sweep()
		return stats, fmt.Errorf("%w: %w", sorterrors.ErrSortStageFailed, err)
	}
	s.logger.Info("sort stage finished", zap.Int("runs", sorted.runs), zap.Uint64("lines", sorted.digest.count))

	runs, err := tempfiles.List(s.cfg.workingDir, s.prefix)
	if err != nil {
		stats.CleanupFailures = s.sweep()
		return stats, fmt.Errorf("%w: %w", sorterrors.ErrMergeStageFailed, err)
	}
	if len(runs) == 0 {
		s.logger.Warn("no sorted runs found after the sort stage; input is empty, nothing to merge")
		stats.CleanupFailures = s.sweep()
		return stats, nil
	}

	m := newMerger(s.cfg.workingDir, s.prefix, s.fanIn, s.cfg.compress, s.logger)
	err = s.runMergeStage(ctx, m, runs, sorted.digest)
	stats.MergePasses = m.passes
	stats.MaxOpenReaders = m.maxOpen
	if err != nil {
		s.logger.Error("merge stage failed", zap.Error(err))
		stats.CleanupFailures = s.sweep()
		return stats, fmt.Errorf("%w: %w", sorterrors.ErrMergeStageFailed, err)
	}
	stats.Lines = m.lines
	stats.ResultChecksum = m.checksum
	s.logger.Info("merge stage finished",
		zap.Int("passes", m.passes),
		zap.Int64("lines", m.lines),
		zap.String("result", s.resultPath),
		zap.Duration("duration", time.Since(start)))

	stats.CleanupFailures = s.sweep()
	return stats, nil
}

// runMergeStage merges runs, checks the result against the sort stage's
// digest and only then places it at the result path.
func (s *Sorter) runMergeStage(ctx context.Context, m *merger, runs []string, want lineDigest) error {
	result, err := m.mergeAll(ctx, runs)
	if err != nil {
		return err
	}
	if m.digest != want {
		return fmt.Errorf("%w: read %d lines, merged %d", sorterrors.ErrChecksumMismatch, want.count, m.digest.count)
	}
	return tempfiles.Move(result, s.resultPath)
}

// sweep removes every file carrying the job prefix. Failures are logged one
// per file and returned; they never change the outcome of the run.
func (s *Sorter) sweep() []error {
	failed := tempfiles.Sweep(s.cfg.workingDir, s.prefix)
	for _, err := range failed {
		s.logger.Warn("temp file not deleted", zap.Error(err))
	}
	if len(failed) == 0 {
		s.logger.Debug("temp files removed")
	}
	return failed
}
