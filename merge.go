package bigsort

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/tamirms/bigsort/internal/pq"
)

// contextCheckInterval is how many merged lines pass between context checks.
const contextCheckInterval = 10000

// merger reduces a list of sorted runs to a single sorted file, merging at
// most fanIn runs at a time and holding at most one line per open run. A
// group holds fanIn+1 files open: its runs and its output.
//
// Groups are merged one after another, so no more than fanIn runs are open
// at any time.
type merger struct {
	dir        string
	prefix     string
	fanIn      int
	compressed bool // runs are zstd-compressed; so are intermediate outputs
	logger     *zap.Logger

	passes  int
	open    int // run readers currently open
	maxOpen int // high-water mark of open

	// Set by the final pass.
	digest   lineDigest
	lines    int64
	checksum uint64
}

func newMerger(dir, prefix string, fanIn int, compressed bool, logger *zap.Logger) *merger {
	return &merger{
		dir:        dir,
		prefix:     prefix,
		fanIn:      fanIn,
		compressed: compressed,
		logger:     logger,
	}
}

// mergeAll merges runs pass by pass until one plain-text file remains and
// returns its path. Each pass splits the current list into consecutive
// groups of fanIn runs and replaces every group by its merged output.
//
// At least one pass always runs, so the result is always written by a pass
// that checksums it; a single run is re-merged as a group of one.
// Consumed runs are left in place for the end-of-job sweep.
func (m *merger) mergeAll(ctx context.Context, runs []string) (string, error) {
	if len(runs) == 0 {
		return "", errors.New("merge: no runs")
	}
	if m.fanIn < 1 || (m.fanIn < 2 && len(runs) > 1) {
		return "", fmt.Errorf("merge: fan-in %d cannot reduce %d runs", m.fanIn, len(runs))
	}

	for {
		final := len(runs) <= m.fanIn
		next := make([]string, 0, (len(runs)+m.fanIn-1)/m.fanIn)
		for i := 0; i < len(runs); i += m.fanIn {
			group := runs[i:min(i+m.fanIn, len(runs))]
			out, err := m.mergeGroup(ctx, group, final)
			if err != nil {
				return "", fmt.Errorf("pass %d, group %d: %w", m.passes+1, i/m.fanIn, err)
			}
			next = append(next, out)
		}
		m.passes++
		m.logger.Debug("merge pass finished",
			zap.Int("pass", m.passes),
			zap.Int("inputs", len(runs)),
			zap.Int("outputs", len(next)))

		runs = next
		if final {
			return runs[0], nil
		}
	}
}

// mergeGroup k-way merges one group of runs into a new run. The final pass
// writes plain text and records the line digest and byte checksum of what
// it wrote.
func (m *merger) mergeGroup(ctx context.Context, group []string, final bool) (_ string, err error) {
	// Plain runs end every line with '\n', so the output size is exactly the
	// sum of the input sizes.
	var reserve int64
	if !m.compressed {
		for _, p := range group {
			info, err := os.Stat(p)
			if err != nil {
				return "", fmt.Errorf("stat run: %w", err)
			}
			reserve += info.Size()
		}
	}

	readers := make([]lineSource, 0, len(group))
	defer func() {
		for _, r := range readers {
			if cerr := r.close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("close run: %w", cerr))
			}
		}
		m.open -= len(readers)
	}()
	for _, p := range group {
		r, err := openRun(p, m.compressed)
		if err != nil {
			return "", fmt.Errorf("open run: %w", err)
		}
		readers = append(readers, r)
		m.open++
		m.maxOpen = max(m.maxOpen, m.open)
	}

	// Seed one slot per run; runs that start empty contribute no slot.
	queue, err := pq.New[string](len(readers))
	if err != nil {
		return "", err
	}
	for i, r := range readers {
		line, ok, err := r.next()
		if err != nil {
			return "", fmt.Errorf("read run: %w", err)
		}
		if ok {
			if err := queue.Insert(i, line); err != nil {
				return "", err
			}
		}
	}

	w, err := createRun(m.dir, m.prefix, m.compressed && !final, reserve)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			err = errors.Join(err, w.close())
		}
	}()
	if final {
		w.trackChecksum()
	}

	var digest lineDigest
	counter := 0
	for !queue.IsEmpty() {
		line, err := queue.MinKey()
		if err != nil {
			return "", err
		}
		if err := w.writeLine(line); err != nil {
			return "", fmt.Errorf("write run: %w", err)
		}
		if final {
			digest.add(line)
		}

		slot, err := queue.DelMin()
		if err != nil {
			return "", err
		}
		next, ok, err := readers[slot].next()
		if err != nil {
			return "", fmt.Errorf("read run: %w", err)
		}
		if ok {
			if err := queue.Insert(slot, next); err != nil {
				return "", err
			}
		}

		counter++
		if counter >= contextCheckInterval {
			counter = 0
			if err := ctx.Err(); err != nil {
				return "", err
			}
		}
	}

	if err := w.close(); err != nil {
		return "", err
	}
	if final {
		m.digest.combine(digest)
		m.lines += w.lines
		m.checksum = w.checksum()
	}
	return w.path(), nil
}
