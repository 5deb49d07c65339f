package merge

import (
	"container/heap"
	"context"

	craterr "github.com/dvorobiov/crate/errors"
)

// Comparator reports the order of two rows: negative when a sorts before
// b, zero when equal, positive when a sorts after b.
type Comparator[T any] func(a, b T) int

// SortedPagingIterator performs a tournament merge across upstreams whose
// pages are individually sorted by the comparator, yielding a globally
// ordered sequence. Used by ORDER BY driven distributed merges.
//
// Ordering discipline: a row is only emitted while every known, unfinished
// upstream has at least one buffered row. As soon as one upstream's buffer
// runs dry the iterator stops at that frontier, names the upstream via
// ExhaustedKey and waits for a refill (or Finish) before yielding more.
// An empty page merged for that upstream does not move the frontier.
type SortedPagingIterator[K comparable, T any] struct {
	cmp Comparator[T]

	// per-upstream FIFO buffers, keys in first-seen order
	buffers map[K][]T
	keys    []K

	// min-heap over the buffer heads, at most one entry per upstream
	heap   keyHeap[K, T]
	inHeap map[K]bool

	history    []T
	repeatable bool
	finished   bool
}

var _ PagingIterator[int, any] = (*SortedPagingIterator[int, any])(nil)

// NewSortedPagingIterator returns a sorted k-way merge strategy. With
// repeatable set, every emitted row is retained for Repeat.
func NewSortedPagingIterator[K comparable, T any](cmp Comparator[T], repeatable bool) *SortedPagingIterator[K, T] {
	it := &SortedPagingIterator[K, T]{
		cmp:        cmp,
		buffers:    make(map[K][]T),
		inHeap:     make(map[K]bool),
		repeatable: repeatable,
	}
	it.heap.it = it
	return it
}

func (it *SortedPagingIterator[K, T]) Merge(batches []KeyIterable[K, T]) error {
	if it.finished {
		return craterr.NewProtocolViolation(context.Background(), craterr.ErrMergeAfterFinish)
	}

	for _, batch := range batches {
		key := batch.Key()
		if _, seen := it.buffers[key]; !seen {
			it.keys = append(it.keys, key)
			it.buffers[key] = nil
		}
		it.buffers[key] = append(it.buffers[key], batch.Rows()...)

		if len(it.buffers[key]) > 0 && !it.inHeap[key] {
			heap.Push(&it.heap, key)
			it.inHeap[key] = true
		}
	}
	return nil
}

func (it *SortedPagingIterator[K, T]) Finish() {
	it.finished = true
}

// ExhaustedKey returns the first known upstream whose buffer ran dry.
// Nothing is reported once Finish was called or before the first merge.
func (it *SortedPagingIterator[K, T]) ExhaustedKey() (K, bool) {
	var zero K
	if it.finished {
		return zero, false
	}

	for _, key := range it.keys {
		if len(it.buffers[key]) == 0 {
			return key, true
		}
	}
	return zero, false
}

func (it *SortedPagingIterator[K, T]) Repeat() ([]T, error) {
	if !it.repeatable {
		return nil, craterr.NewProtocolViolation(context.Background(), craterr.ErrRepeatNotSupported)
	}

	view := make([]T, len(it.history))
	copy(view, it.history)
	return view, nil
}

func (it *SortedPagingIterator[K, T]) HasNext() bool {
	if it.heap.Len() == 0 {
		return false
	}
	if it.finished {
		return true
	}

	// an empty buffer could still receive a row that sorts before every
	// buffered head, so the frontier blocks emission
	for _, key := range it.keys {
		if len(it.buffers[key]) == 0 {
			return false
		}
	}
	return true
}

func (it *SortedPagingIterator[K, T]) Next() (T, error) {
	if !it.HasNext() {
		var zero T
		return zero, craterr.NewProtocolViolation(context.Background(), craterr.ErrNextPastEnd)
	}

	key := heap.Pop(&it.heap).(K)
	row := it.buffers[key][0]
	it.buffers[key] = it.buffers[key][1:]

	if len(it.buffers[key]) > 0 {
		heap.Push(&it.heap, key)
	} else {
		it.inHeap[key] = false
	}

	if it.repeatable {
		it.history = append(it.history, row)
	}
	return row, nil
}

// keyHeap orders upstream keys by the head row of their buffer. Heads only
// change through Next, which re-heapifies the affected key, so the heap
// invariant holds between operations.
type keyHeap[K comparable, T any] struct {
	keys []K
	it   *SortedPagingIterator[K, T]
}

func (h *keyHeap[K, T]) Len() int { return len(h.keys) }

func (h *keyHeap[K, T]) Less(i, j int) bool {
	a := h.it.buffers[h.keys[i]][0]
	b := h.it.buffers[h.keys[j]][0]
	return h.it.cmp(a, b) < 0
}

func (h *keyHeap[K, T]) Swap(i, j int) {
	h.keys[i], h.keys[j] = h.keys[j], h.keys[i]
}

func (h *keyHeap[K, T]) Push(x any) {
	h.keys = append(h.keys, x.(K))
}

func (h *keyHeap[K, T]) Pop() any {
	old := h.keys
	n := len(old)
	key := old[n-1]
	h.keys = old[0 : n-1]
	return key
}
