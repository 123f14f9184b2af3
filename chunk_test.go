package bigsort

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"slices"
	"testing"

	"go.uber.org/zap"

	sorterrors "github.com/tamirms/bigsort/errors"
	"github.com/tamirms/bigsort/internal/tempfiles"
	"github.com/tamirms/bigsort/internal/workqueue"
)

const testPrefix = "big.sort.test."

// readRun returns every line of a run file.
func readRun(t *testing.T, path string, compressed bool) []string {
	t.Helper()
	r, err := openRun(path, compressed)
	if err != nil {
		t.Fatal(err)
	}
	defer r.close()
	var lines []string
	for {
		line, ok, err := r.next()
		if err != nil {
			t.Fatal(err)
		}
		if !ok {
			return lines
		}
		lines = append(lines, line)
	}
}

func newTestChunkSorter(t *testing.T, files []string, maxItems int, cfg *config) *chunkSorter {
	t.Helper()
	c, err := newChunkSorter(0, workqueue.New(files), maxItems, testPrefix, cfg, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestChunkSorterRunCount(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	tests := []struct {
		name     string
		lines    int
		maxItems int
		wantRuns int
	}{
		{"partial last chunk", 25, 10, 3},
		{"exact multiple", 20, 10, 2},
		{"single chunk", 7, 10, 1},
		{"one line per run", 5, 1, 5},
		{"empty file", 0, 10, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			inDir, workDir := t.TempDir(), t.TempDir()
			lines := randomLines(rng, tc.lines, 12)
			input := writeInput(t, inDir, "in.txt", lines)

			cfg := defaultConfig()
			cfg.workingDir = workDir
			c := newTestChunkSorter(t, []string{input}, tc.maxItems, cfg)
			if err := c.run(context.Background()); err != nil {
				t.Fatal(err)
			}

			runs, err := tempfiles.List(workDir, testPrefix)
			if err != nil {
				t.Fatal(err)
			}
			if len(runs) != tc.wantRuns || c.runs != tc.wantRuns {
				t.Fatalf("runs: listed %d, counted %d, want %d", len(runs), c.runs, tc.wantRuns)
			}

			var all []string
			for _, p := range runs {
				run := readRun(t, p, false)
				if len(run) == 0 || len(run) > tc.maxItems {
					t.Errorf("%s: %d lines, want 1..%d", filepath.Base(p), len(run), tc.maxItems)
				}
				if !slices.IsSorted(run) {
					t.Errorf("%s is not sorted", filepath.Base(p))
				}
				all = append(all, run...)
			}
			slices.Sort(all)
			assertSameLines(t, all, sortedConcat(lines))

			if c.digest.count != uint64(tc.lines) {
				t.Errorf("digest counted %d lines, want %d", c.digest.count, tc.lines)
			}
		})
	}
}

func TestChunkSorterDrainsQueue(t *testing.T) {
	inDir, workDir := t.TempDir(), t.TempDir()
	var files []string
	for i := range 3 {
		files = append(files, writeInput(t, inDir, string(rune('a'+i))+".txt", descendingDigits()))
	}

	cfg := defaultConfig()
	cfg.workingDir = workDir
	c := newTestChunkSorter(t, files, 2, cfg)
	if err := c.run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if c.files != 3 {
		t.Errorf("processed %d files, want 3", c.files)
	}
	// 10 lines per file, 2 per run.
	if c.runs != 15 {
		t.Errorf("wrote %d runs, want 15", c.runs)
	}
}

func TestChunkSorterCompressedRuns(t *testing.T) {
	inDir, workDir := t.TempDir(), t.TempDir()
	lines := randomLines(rand.New(rand.NewPCG(3, 4)), 100, 40)
	input := writeInput(t, inDir, "in.txt", lines)

	cfg := defaultConfig()
	cfg.workingDir = workDir
	cfg.compress = true
	c := newTestChunkSorter(t, []string{input}, 30, cfg)
	if err := c.run(context.Background()); err != nil {
		t.Fatal(err)
	}

	runs, err := tempfiles.List(workDir, testPrefix)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 4 {
		t.Fatalf("got %d runs, want 4", len(runs))
	}
	var all []string
	for _, p := range runs {
		run := readRun(t, p, true)
		if !slices.IsSorted(run) {
			t.Errorf("%s is not sorted", filepath.Base(p))
		}
		all = append(all, run...)
	}
	slices.Sort(all)
	assertSameLines(t, all, sortedConcat(lines))
}

func TestChunkSorterMissingInput(t *testing.T) {
	cfg := defaultConfig()
	cfg.workingDir = t.TempDir()
	c := newTestChunkSorter(t, []string{filepath.Join(t.TempDir(), "missing.txt")}, 4, cfg)
	if err := c.run(context.Background()); err == nil {
		t.Fatal("expected error for missing input file")
	}
}

func TestChunkSorterMissingWorkingDir(t *testing.T) {
	input := writeInput(t, t.TempDir(), "in.txt", descendingDigits())
	cfg := defaultConfig()
	cfg.workingDir = filepath.Join(t.TempDir(), "gone")
	c := newTestChunkSorter(t, []string{input}, 4, cfg)
	if err := c.run(context.Background()); err == nil {
		t.Fatal("expected error when runs cannot be created")
	}
}

func TestChunkSorterCancelled(t *testing.T) {
	input := writeInput(t, t.TempDir(), "in.txt", descendingDigits())
	cfg := defaultConfig()
	cfg.workingDir = t.TempDir()
	c := newTestChunkSorter(t, []string{input}, 4, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := c.run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewChunkSorterZeroBatch(t *testing.T) {
	_, err := newChunkSorter(0, workqueue.New[string](nil), 0, testPrefix, defaultConfig(), zap.NewNop())
	if !errors.Is(err, sorterrors.ErrBatchTooSmall) {
		t.Fatalf("expected ErrBatchTooSmall, got %v", err)
	}
}
