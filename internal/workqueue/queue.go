// Package workqueue provides the shared bag of pending input files drained
// by concurrent chunk sorters.
package workqueue

// Queue is a multi-consumer FIFO of items fixed at construction.
//
// It is backed by a buffered channel that is filled and closed by New, so a
// receive never blocks: it yields the next item, or reports that the queue
// is drained. Channel receive hands each item to exactly one consumer, so no
// item is duplicated or dropped under any interleaving.
type Queue[T any] struct {
	items chan T
}

// New returns a queue holding items in order. The queue is never refilled.
func New[T any](items []T) *Queue[T] {
	ch := make(chan T, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return &Queue[T]{items: ch}
}

// TryTake removes and returns the next item. ok is false once the queue is
// empty; that is the normal end of work, not an error.
func (q *Queue[T]) TryTake() (item T, ok bool) {
	item, ok = <-q.items
	return item, ok
}

// Len returns the number of items not yet taken.
func (q *Queue[T]) Len() int {
	return len(q.items)
}
