// Bigsort sorts the lines of text files too large to sort in memory.
//
// Usage:
//
//	bigsort -i logs/ -i extra.txt -b 1000000 -w 8 -o sorted.txt
//
// Flags:
//
//	-i, --input           Input file or directory, repeatable; positional args also count
//	-b, --batch           Max lines held in memory across all workers (required)
//	-o, --output          Result file (required)
//	-w, --workers         Number of parallel chunk sorters (default: 1)
//	-d, --working-dir     Directory for temporary run files (default: $TMPDIR)
//	-m, --max-open-files  Max files open at once while merging, output included (default: 10000)
//	    --compress        zstd-compress temporary runs
//	    --mmap            Read input files through mmap
//	-c, --config          YAML config file; explicitly set flags override it
//	-v, --verbose         Debug logging
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/tamirms/bigsort"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

func run(args []string, stdout io.Writer) int {
	s, err := parseSettings(args)
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "bigsort: %v\n", err)
		return 1
	}

	logger, err := newLogger(s.Verbose)
	if err != nil {
		fmt.Fprintf(os.Stderr, "bigsort: logger: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stats, err := sortInputs(ctx, s, logger)
	if n := len(stats.CleanupFailures); n > 0 {
		fmt.Fprintf(os.Stderr, "bigsort: %d temporary files could not be removed from %s\n", n, s.WorkingDir)
	}
	if err != nil {
		logger.Error("sort failed", zap.Error(err))
		return 1
	}

	if stats.Lines == 0 {
		fmt.Fprintln(stdout, "No lines to sort")
		return 0
	}
	fmt.Fprintf(stdout, "Sorted %d lines into %s in %v (checksum %016x)\n",
		stats.Lines, s.Output, stats.Duration.Round(time.Millisecond), stats.ResultChecksum)
	return 0
}

func sortInputs(ctx context.Context, s settings, logger *zap.Logger) (bigsort.Stats, error) {
	inputs, err := bigsort.CollectInputs(s.Inputs)
	if err != nil {
		return bigsort.Stats{}, err
	}
	sorter, err := bigsort.New(inputs, s.Batch, s.Output,
		bigsort.WithWorkers(s.Workers),
		bigsort.WithWorkingDir(s.WorkingDir),
		bigsort.WithMaxOpenFiles(s.MaxOpenFiles),
		bigsort.WithCompression(s.Compress),
		bigsort.WithMmapInput(s.Mmap),
		bigsort.WithLogger(logger),
	)
	if err != nil {
		return bigsort.Stats{}, err
	}
	return sorter.Sort(ctx)
}

func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
