// Package errors defines all exported error sentinels for the bigsort library.
//
// This is the single source of truth for error values. Both the top-level
// bigsort package and internal packages import from here, ensuring errors.Is
// checks work across package boundaries.
package errors

import "errors"

// Configuration errors. Detected by New before any temp file exists.
var (
	ErrInvalidWorkers      = errors.New("bigsort: worker count must be at least 1")
	ErrInvalidBatch        = errors.New("bigsort: batch must be at least 2 lines")
	ErrInvalidMaxOpenFiles = errors.New("bigsort: max open files must be at least 3")
	ErrBatchTooSmall       = errors.New("bigsort: per-worker batch size is zero")
	ErrWorkingDirNotFound  = errors.New("bigsort: working directory does not exist")
	ErrEmptyResultPath     = errors.New("bigsort: result path is empty")
)

// Input enumeration errors
var (
	ErrInputNotFound   = errors.New("bigsort: input path does not exist")
	ErrNestedDirectory = errors.New("bigsort: input directory contains directories")
)

// Stage errors
var (
	ErrSortStageFailed  = errors.New("bigsort: sort stage failed")
	ErrMergeStageFailed = errors.New("bigsort: merge stage failed")
	ErrChecksumMismatch = errors.New("bigsort: merged output does not match sorted input")
	ErrSorterUsed       = errors.New("bigsort: sorter has already run")
)

// Priority queue errors. These are contract violations; the merger never
// triggers them on valid input.
var (
	ErrInvalidCapacity = errors.New("bigsort: priority queue capacity must not be negative")
	ErrInvalidIndex    = errors.New("bigsort: priority queue index out of range")
	ErrDuplicateIndex  = errors.New("bigsort: priority queue index already present")
	ErrIndexNotPresent = errors.New("bigsort: priority queue index not present")
	ErrEmptyQueue      = errors.New("bigsort: priority queue is empty")
)
