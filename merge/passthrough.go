package merge

import (
	"context"

	craterr "github.com/dvorobiov/crate/errors"
)

// PassThroughPagingIterator concatenates pages in the order they are
// merged, without reordering or deduplication across upstreams. It is the
// reference strategy for plans that need no cross-upstream ordering.
type PassThroughPagingIterator[K comparable, T any] struct {
	rows []T

	// full merge history, only tracked in repeatable mode
	history    []T
	repeatable bool

	lastKey  K
	hasKey   bool
	finished bool
}

var _ PagingIterator[int, any] = (*PassThroughPagingIterator[int, any])(nil)

// PassThroughOneShot returns a pass-through iterator that discards rows as
// they are consumed. Repeat is not available.
func PassThroughOneShot[K comparable, T any]() *PassThroughPagingIterator[K, T] {
	return &PassThroughPagingIterator[K, T]{}
}

// PassThroughRepeatable returns a pass-through iterator that retains every
// row it has ever merged so the sequence can be replayed from the start.
func PassThroughRepeatable[K comparable, T any]() *PassThroughPagingIterator[K, T] {
	return &PassThroughPagingIterator[K, T]{repeatable: true}
}

func (it *PassThroughPagingIterator[K, T]) Merge(batches []KeyIterable[K, T]) error {
	if it.finished {
		return craterr.NewProtocolViolation(context.Background(), craterr.ErrMergeAfterFinish)
	}

	for _, batch := range batches {
		it.rows = append(it.rows, batch.Rows()...)
		if it.repeatable {
			it.history = append(it.history, batch.Rows()...)
		}
		it.lastKey = batch.Key()
		it.hasKey = true
	}
	return nil
}

func (it *PassThroughPagingIterator[K, T]) Finish() {
	it.finished = true
}

// ExhaustedKey reports the key most recently merged. Pass-through merging
// has single-producer-at-a-time semantics: the upstream that delivered
// last is the one to poll next.
func (it *PassThroughPagingIterator[K, T]) ExhaustedKey() (K, bool) {
	return it.lastKey, it.hasKey
}

func (it *PassThroughPagingIterator[K, T]) Repeat() ([]T, error) {
	if !it.repeatable {
		return nil, craterr.NewProtocolViolation(context.Background(), craterr.ErrRepeatNotSupported)
	}

	view := make([]T, len(it.history))
	copy(view, it.history)
	return view, nil
}

func (it *PassThroughPagingIterator[K, T]) HasNext() bool {
	return len(it.rows) > 0
}

func (it *PassThroughPagingIterator[K, T]) Next() (T, error) {
	if len(it.rows) == 0 {
		var zero T
		return zero, craterr.NewProtocolViolation(context.Background(), craterr.ErrNextPastEnd)
	}

	row := it.rows[0]
	it.rows = it.rows[1:]
	return row, nil
}
