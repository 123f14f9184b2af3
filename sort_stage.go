package bigsort

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/tamirms/bigsort/internal/workqueue"
)

// sortStageResult aggregates the outcome of every chunk sorter.
type sortStageResult struct {
	digest lineDigest
	runs   int
}

// runSortStage runs s.workers chunk sorters against one shared queue of the
// input files and waits for all of them.
//
// The wait is a barrier, not a race: a failing worker does not cancel its
// siblings, and the stage only returns once every worker has stopped. The
// stage succeeds only if every worker succeeded; all worker errors are
// joined into the returned error.
func (s *Sorter) runSortStage(ctx context.Context) (sortStageResult, error) {
	queue := workqueue.New(s.inputs)

	workers := make([]*chunkSorter, s.workers)
	for i := range workers {
		w, err := newChunkSorter(i, queue, s.batchPerWorker, s.prefix, s.cfg, s.logger)
		if err != nil {
			return sortStageResult{}, err
		}
		workers[i] = w
	}

	// No WithContext: a failed worker leaves its siblings running.
	errs := make([]error, len(workers))
	var g errgroup.Group
	for i, w := range workers {
		g.Go(func() error {
			errs[i] = w.run(ctx)
			return errs[i]
		})
	}
	_ = g.Wait() // errors are collected per worker in errs

	var res sortStageResult
	for _, w := range workers {
		res.digest.combine(w.digest)
		res.runs += w.runs
	}
	return res, errors.Join(errs...)
}
