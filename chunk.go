package bigsort

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"go.uber.org/zap"

	sorterrors "github.com/tamirms/bigsort/errors"
	"github.com/tamirms/bigsort/internal/workqueue"
)

// initialChunkCapacity bounds the up-front allocation of a chunk buffer;
// the buffer grows on demand up to maxItems.
const initialChunkCapacity = 4096

// chunkSorter is one worker of the sort stage. It takes whole input files
// from the shared queue, reads each in chunks of at most maxItems lines,
// sorts every chunk in memory and writes it to its own run file.
//
// A chunkSorter owns its buffer and the runs it creates; the queue is the
// only state it shares with other workers.
type chunkSorter struct {
	id       int
	queue    *workqueue.Queue[string]
	maxItems int
	dir      string
	prefix   string
	compress bool
	mmap     bool
	logger   *zap.Logger

	buf    []string
	digest lineDigest // every line read, for the completeness check
	files  int
	runs   int
}

func newChunkSorter(id int, queue *workqueue.Queue[string], maxItems int, prefix string, cfg *config, logger *zap.Logger) (*chunkSorter, error) {
	if maxItems < 1 {
		return nil, fmt.Errorf("%w: worker %d would hold %d lines", sorterrors.ErrBatchTooSmall, id, maxItems)
	}
	return &chunkSorter{
		id:       id,
		queue:    queue,
		maxItems: maxItems,
		dir:      cfg.workingDir,
		prefix:   prefix,
		compress: cfg.compress,
		mmap:     cfg.mmapInput,
		logger:   logger.With(zap.Int("worker", id)),
		buf:      make([]string, 0, min(maxItems, initialChunkCapacity)),
	}, nil
}

// run drains the queue. It returns nil once the queue is empty, or the
// first error; after an error the worker takes no further files.
func (c *chunkSorter) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, ok := c.queue.TryTake()
		if !ok {
			c.logger.Debug("queue drained", zap.Int("files", c.files), zap.Int("runs", c.runs))
			return nil
		}
		if err := c.sortFile(ctx, path); err != nil {
			return fmt.Errorf("worker %d: %s: %w", c.id, path, err)
		}
		c.files++
	}
}

// sortFile turns one input file into ceil(lines/maxItems) runs. A file whose
// line count is a multiple of maxItems produces no trailing empty run.
func (c *chunkSorter) sortFile(ctx context.Context, path string) (err error) {
	src, err := openInput(path, c.mmap)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer func() {
		if cerr := src.close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close input: %w", cerr))
		}
	}()

	c.buf = c.buf[:0]
	for {
		line, ok, err := src.next()
		if err != nil {
			return fmt.Errorf("read input: %w", err)
		}
		if !ok {
			break
		}
		c.buf = append(c.buf, line)
		c.digest.add(line)

		if len(c.buf) == c.maxItems {
			if err := c.flush(); err != nil {
				return err
			}
			if err := ctx.Err(); err != nil {
				return err
			}
		}
	}

	if len(c.buf) > 0 {
		return c.flush()
	}
	return nil
}

// flush sorts the buffered lines and writes them to a new run.
func (c *chunkSorter) flush() error {
	slices.Sort(c.buf)

	w, err := createRun(c.dir, c.prefix, c.compress, 0)
	if err != nil {
		return err
	}
	for _, line := range c.buf {
		if err := w.writeLine(line); err != nil {
			return errors.Join(fmt.Errorf("write run: %w", err), w.close())
		}
	}
	if err := w.close(); err != nil {
		return err
	}

	c.logger.Debug("run written", zap.String("run", w.path()), zap.Int("lines", len(c.buf)))
	c.runs++
	clear(c.buf) // drop string references before reuse
	c.buf = c.buf[:0]
	return nil
}
