// Package upstream bridges concrete paged data sources to the three
// collaborator contracts a merge cursor consumes: the fetch-more provider,
// the completion predicate and the release sink.
package upstream

import (
	"context"
	"sync"
)

// Source is one independent paged data source, e.g. one shard's partial
// result stream. FetchPage returns the next page and whether more pages
// remain; page transport, retries and timeouts live behind this interface.
type Source[T any] interface {
	FetchPage(ctx context.Context) (rows []T, hasMore bool, err error)

	// Close releases the source after a clean consumption.
	Close() error

	// Kill forcibly terminates the source due to err.
	Kill(err error)
}

// SliceSource serves a fixed row slice in pages of at most pageSize rows.
// Used to back tests and examples with a deterministic upstream.
type SliceSource[T any] struct {
	mu       sync.Mutex
	rows     []T
	pos      int
	pageSize int
	closed   bool
	killed   error
}

var _ Source[any] = (*SliceSource[any])(nil)

func NewSliceSource[T any](rows []T, pageSize int) *SliceSource[T] {
	if pageSize < 1 {
		pageSize = 1
	}
	return &SliceSource[T]{rows: rows, pageSize: pageSize}
}

func (s *SliceSource[T]) FetchPage(ctx context.Context) ([]T, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	end := s.pos + s.pageSize
	if end > len(s.rows) {
		end = len(s.rows)
	}

	page := s.rows[s.pos:end]
	s.pos = end
	return page, s.pos < len(s.rows), nil
}

func (s *SliceSource[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *SliceSource[T]) Kill(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.killed = err
}

// Closed reports whether the source was cleanly closed.
func (s *SliceSource[T]) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Killed returns the error the source was killed with, or nil.
func (s *SliceSource[T]) Killed() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}
