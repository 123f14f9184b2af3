// Package bigsort sorts the lines of text files that together do not fit in
// memory.
//
// Sorting runs in two stages. In the sort stage a pool of workers takes
// whole input files from a shared queue, reads each in chunks of at most
// batch/workers lines, sorts every chunk in memory and writes it to its own
// run file in the working directory. Once every worker has finished, the
// merge stage repeatedly k-way merges groups of at most maxOpenFiles-1 runs
// (the merged output takes the last handle) until a single sorted file
// remains, which is moved to the result path.
//
// Lines are compared as raw bytes (Go string order). A trailing '\r' is
// stripped from input lines; every result line ends with '\n'.
//
// # Basic Usage
//
//	inputs, err := bigsort.CollectInputs([]string{"logs/"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	s, err := bigsort.New(inputs, 1_000_000, "sorted.txt",
//	    bigsort.WithWorkers(runtime.NumCPU()),
//	    bigsort.WithWorkingDir("/var/tmp"),
//	    bigsort.WithMaxOpenFiles(512),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	stats, err := s.Sort(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(stats.Lines, "lines sorted")
//
// # Temporary Files
//
// Every temp file of a job is named with the job prefix
// ("big.sort.<timestamp>.<random>.") so several jobs can share a working
// directory. All prefixed files are removed before Sort returns, whether it
// succeeds or fails. Files that cannot be removed are reported in
// Stats.CleanupFailures and never change the outcome.
//
// # Memory
//
// The sort stage holds at most batch lines across all workers. The merge
// stage holds one line per open run, with at most min(maxOpenFiles-1, batch)
// runs and one output open at once.
//
// # Errors
//
// All error sentinels live in the errors subpackage. Configuration errors are
// returned by New. Sort wraps stage failures with ErrSortStageFailed or
// ErrMergeStageFailed; the underlying cause remains reachable with errors.Is.
package bigsort
