// Package future provides a one-shot completable value.
//
// The merge layer hands futures across an ownership boundary: the fetch-more
// provider owns the future it returns, and the paging cursor only observes
// it. Completion state must therefore be inspectable without consuming
// anything, which a bare channel receive cannot offer.
package future

import (
	"context"
	"sync"
)

// Future is a container for a value of type T that becomes available at most
// once. It is safe for concurrent use. The first call to Complete or Fail
// wins; later calls are no-ops.
type Future[T any] struct {
	mu   sync.Mutex
	done chan struct{}
	val  T
	err  error
}

func New[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future already resolved with val.
func Completed[T any](val T) *Future[T] {
	f := New[T]()
	f.Complete(val)
	return f
}

// Failed returns a future already resolved with err.
func Failed[T any](err error) *Future[T] {
	f := New[T]()
	f.Fail(err)
	return f
}

// Complete resolves the future with val. It reports whether this call was
// the one that resolved the future.
func (f *Future[T]) Complete(val T) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	select {
	case <-f.done:
		return false
	default:
	}

	f.val = val
	close(f.done)
	return true
}

// Fail resolves the future with err. It reports whether this call was the
// one that resolved the future.
func (f *Future[T]) Fail(err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	select {
	case <-f.done:
		return false
	default:
	}

	f.err = err
	close(f.done)
	return true
}

// Done reports whether the future has been resolved, without blocking.
func (f *Future[T]) Done() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Await blocks until the future resolves or ctx is cancelled. On
// cancellation the future itself is left untouched.
func (f *Future[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// C exposes the completion signal for use in select statements. The channel
// is closed when the future resolves.
func (f *Future[T]) C() <-chan struct{} {
	return f.done
}

// Value returns the resolution of the future. It must only be called after
// the future is done.
func (f *Future[T]) Value() (T, error) {
	return f.val, f.err
}
