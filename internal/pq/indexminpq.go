// Package pq implements an indexed min-priority queue over a fixed set of
// slots 0..n-1. Each slot holds at most one key; the queue reports the
// smallest key and the slot it came from, and supports change and removal
// by slot.
package pq

import (
	"cmp"
	"fmt"

	sorterrors "github.com/tamirms/bigsort/errors"
)

// IndexMinPQ is a binary min-heap of slot indices ordered by key.
//
// heap holds slot indices in heap order, pos maps a slot to its position in
// heap (-1 when the slot is empty) and keys holds the key of each present
// slot. Equal keys are ordered by ascending slot index, so the minimum is
// deterministic for a given set of (slot, key) pairs.
type IndexMinPQ[K cmp.Ordered] struct {
	heap []int
	pos  []int
	keys []K
}

// New creates an empty queue with capacity for slots 0..n-1.
func New[K cmp.Ordered](n int) (*IndexMinPQ[K], error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", sorterrors.ErrInvalidCapacity, n)
	}
	q := &IndexMinPQ[K]{
		heap: make([]int, 0, n),
		pos:  make([]int, n),
		keys: make([]K, n),
	}
	for i := range q.pos {
		q.pos[i] = -1
	}
	return q, nil
}

// Cap returns the number of slots.
func (q *IndexMinPQ[K]) Cap() int {
	return len(q.pos)
}

// Len returns the number of keys currently held. O(1).
func (q *IndexMinPQ[K]) Len() int {
	return len(q.heap)
}

// IsEmpty reports whether no keys are held.
func (q *IndexMinPQ[K]) IsEmpty() bool {
	return len(q.heap) == 0
}

// Contains reports whether slot i holds a key.
func (q *IndexMinPQ[K]) Contains(i int) (bool, error) {
	if err := q.checkIndex(i); err != nil {
		return false, err
	}
	return q.pos[i] != -1, nil
}

// Insert stores key at slot i. O(log n).
func (q *IndexMinPQ[K]) Insert(i int, key K) error {
	if err := q.checkIndex(i); err != nil {
		return err
	}
	if q.pos[i] != -1 {
		return fmt.Errorf("%w: %d", sorterrors.ErrDuplicateIndex, i)
	}
	q.keys[i] = key
	q.heap = append(q.heap, i)
	q.pos[i] = len(q.heap) - 1
	q.up(len(q.heap) - 1)
	return nil
}

// MinKey returns the smallest key without removing it.
func (q *IndexMinPQ[K]) MinKey() (K, error) {
	if len(q.heap) == 0 {
		var zero K
		return zero, sorterrors.ErrEmptyQueue
	}
	return q.keys[q.heap[0]], nil
}

// MinIndex returns the slot holding the smallest key without removing it.
func (q *IndexMinPQ[K]) MinIndex() (int, error) {
	if len(q.heap) == 0 {
		return -1, sorterrors.ErrEmptyQueue
	}
	return q.heap[0], nil
}

// DelMin removes the smallest key and returns the slot that held it.
// O(log n).
func (q *IndexMinPQ[K]) DelMin() (int, error) {
	if len(q.heap) == 0 {
		return -1, sorterrors.ErrEmptyQueue
	}
	slot := q.heap[0]
	q.removeAt(0)
	return slot, nil
}

// KeyOf returns the key held at slot i.
func (q *IndexMinPQ[K]) KeyOf(i int) (K, error) {
	var zero K
	if err := q.checkIndex(i); err != nil {
		return zero, err
	}
	if q.pos[i] == -1 {
		return zero, fmt.Errorf("%w: %d", sorterrors.ErrIndexNotPresent, i)
	}
	return q.keys[i], nil
}

// ChangeKey replaces the key at slot i and restores heap order.
func (q *IndexMinPQ[K]) ChangeKey(i int, key K) error {
	if err := q.checkIndex(i); err != nil {
		return err
	}
	p := q.pos[i]
	if p == -1 {
		return fmt.Errorf("%w: %d", sorterrors.ErrIndexNotPresent, i)
	}
	q.keys[i] = key
	q.up(p)
	q.down(q.pos[i], len(q.heap))
	return nil
}

// Delete removes the key at slot i.
func (q *IndexMinPQ[K]) Delete(i int) error {
	if err := q.checkIndex(i); err != nil {
		return err
	}
	p := q.pos[i]
	if p == -1 {
		return fmt.Errorf("%w: %d", sorterrors.ErrIndexNotPresent, i)
	}
	q.removeAt(p)
	return nil
}

func (q *IndexMinPQ[K]) checkIndex(i int) error {
	if i < 0 || i >= len(q.pos) {
		return fmt.Errorf("%w: %d not in [0, %d)", sorterrors.ErrInvalidIndex, i, len(q.pos))
	}
	return nil
}

// removeAt swaps heap position p with the last element, shrinks the heap and
// re-heapifies the moved element in whichever direction it needs to go.
func (q *IndexMinPQ[K]) removeAt(p int) {
	n := len(q.heap) - 1
	slot := q.heap[p]
	q.swap(p, n)
	q.heap = q.heap[:n]
	q.pos[slot] = -1
	var zero K
	q.keys[slot] = zero // release string memory held by the slot
	if p < n {
		moved := q.heap[p]
		q.up(p)
		q.down(q.pos[moved], n)
	}
}

func (q *IndexMinPQ[K]) swap(i, j int) {
	q.heap[i], q.heap[j] = q.heap[j], q.heap[i]
	q.pos[q.heap[i]] = i
	q.pos[q.heap[j]] = j
}

func (q *IndexMinPQ[K]) less(i, j int) bool {
	a, b := q.heap[i], q.heap[j]
	if c := cmp.Compare(q.keys[a], q.keys[b]); c != 0 {
		return c < 0
	}
	// Deterministic tie-break by slot
	return a < b
}

func (q *IndexMinPQ[K]) up(j int) {
	for {
		i := (j - 1) / 2 // parent
		if i == j || !q.less(j, i) {
			break
		}
		q.swap(i, j)
		j = i
	}
}

func (q *IndexMinPQ[K]) down(i, n int) {
	for {
		j1 := 2*i + 1
		if j1 >= n || j1 < 0 {
			break
		}
		j := j1 // left child
		if j2 := j1 + 1; j2 < n && q.less(j2, j1) {
			j = j2 // right child
		}
		if !q.less(j, i) {
			break
		}
		q.swap(i, j)
		i = j
	}
}
