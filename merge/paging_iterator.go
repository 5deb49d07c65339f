// Package merge combines rows arriving page-wise from multiple upstreams
// into a single forward-only cursor.
//
// A PagingIterator is the pluggable merge strategy: it receives pages as
// KeyIterables and exposes the unified row sequence. BatchPagingIterator
// adapts a strategy plus an asynchronous fetch-more function into the
// cursor the rest of the query pipeline consumes.
package merge

// PagingIterator merges pages from multiple upstreams into one logical row
// sequence. Implementations are single-threaded and forward-only; the
// caller alternates between draining rows and merging freshly fetched
// pages.
type PagingIterator[K comparable, T any] interface {
	// Merge incorporates newly arrived pages into the unified sequence.
	// Callable once per fetch round for the lifetime of the iterator.
	// Returns a protocol violation if called after Finish.
	Merge(batches []KeyIterable[K, T]) error

	// Finish signals that no further pages will ever arrive. The
	// remaining rows stay drainable. Idempotent.
	Finish()

	// ExhaustedKey returns the upstream that should be asked for more
	// data next. ok is false when no refill is currently needed or
	// possible.
	ExhaustedKey() (key K, ok bool)

	// Repeat returns a fresh, restartable view over all rows merged so
	// far, from the first row, independent of how much has been
	// consumed. Only available in repeatable mode; otherwise a protocol
	// violation is returned.
	Repeat() ([]T, error)

	// HasNext reports whether a row can be consumed without merging
	// more pages.
	HasNext() bool

	// Next returns the next row. Calling it when HasNext is false is a
	// protocol violation.
	Next() (T, error)
}
