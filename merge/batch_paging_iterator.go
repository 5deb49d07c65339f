package merge

import (
	"context"
	"sync"

	craterr "github.com/dvorobiov/crate/errors"
	"github.com/dvorobiov/crate/future"
	"github.com/dvorobiov/crate/internal/utils"
	"github.com/dvorobiov/crate/logger"
	"github.com/dvorobiov/crate/queryctx"
)

// FetchMoreFunc requests the next page(s) from the upstreams. exhausted is
// the key the strategy wants refilled, or nil when no key is named; the
// provider may return pages for any upstreams, and an empty result is a
// legal no-op. The provider owns the returned future: the cursor only
// observes it and must be safe against the future never resolving.
type FetchMoreFunc[K comparable, T any] func(ctx context.Context, exhausted *K) *future.Future[[]KeyIterable[K, T]]

type cursorState int

const (
	stateActive cursorState = iota
	stateAwaitingFetch
	stateExhausted
	stateClosed
	stateKilled
)

var stateNames = []string{"Active", "AwaitingFetch", "Exhausted", "Closed", "Killed"}

func (s cursorState) String() string {
	return stateNames[s]
}

// BatchPagingIterator adapts a PagingIterator and an asynchronous
// fetch-more function into the forward-only cursor consumed by the rest of
// the query pipeline.
//
// A single logical owner drives MoveNext / LoadNextBatch / MoveToStart;
// Close and Kill may additionally be called while a fetch is in flight.
// The pending fetch future belongs to the provider and is never completed,
// failed or cancelled from the cursor side: killing the cursor while a
// fetch is outstanding only updates local state and notifies the release
// sink, so the upstream can never observe a premature completion of work
// it still owns.
type BatchPagingIterator[K comparable, T any] struct {
	mu    sync.Mutex
	state cursorState

	pagingIterator   PagingIterator[K, T]
	fetchMore        FetchMoreFunc[K, T]
	allUpstreamsDone func() bool

	// single-shot release notification; nil error means clean close
	onRelease func(error)
	released  bool

	// outstanding provider future, retained under cursor ownership
	// while state is AwaitingFetch
	pending *future.Future[[]KeyIterable[K, T]]

	current T

	// replay view installed by MoveToStart; iteration continues from it
	// instead of the strategy
	replay    []T
	replayPos int
	replaying bool

	ctx context.Context
	log *logger.Logger
}

// NewBatchPagingIterator builds a cursor over pagingIterator. ctx is only
// consulted for query scoped ids attached to errors and log fields.
// onRelease is invoked exactly once over the cursor's lifetime, with nil on
// Close and the causing error on Kill; tearing down whatever resources the
// fetch-more provider draws from is the sink's job, never the cursor's.
func NewBatchPagingIterator[K comparable, T any](
	ctx context.Context,
	pagingIterator PagingIterator[K, T],
	fetchMore FetchMoreFunc[K, T],
	allUpstreamsDone func() bool,
	onRelease func(error),
) *BatchPagingIterator[K, T] {

	cursorId := utils.NewGuid().String()

	return &BatchPagingIterator[K, T]{
		state:            stateActive,
		pagingIterator:   pagingIterator,
		fetchMore:        fetchMore,
		allUpstreamsDone: allUpstreamsDone,
		onRelease:        onRelease,
		ctx:              ctx,
		log:              logger.WithContext(queryctx.QueryIdFromContext(ctx), cursorId),
	}
}

// MoveNext advances to the next available row, reporting whether one is
// available. A false return is not terminal: after a successful
// LoadNextBatch round more rows may become available. Calling MoveNext
// while a fetch is in flight or after Close/Kill is a protocol violation.
func (it *BatchPagingIterator[K, T]) MoveNext() (bool, error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if err := it.raiseIfTerminal(); err != nil {
		return false, err
	}
	if it.state == stateAwaitingFetch {
		return false, craterr.NewProtocolViolation(it.ctx, craterr.ErrAdvanceDuringFetch)
	}

	if it.replaying {
		if it.replayPos < len(it.replay) {
			it.current = it.replay[it.replayPos]
			it.replayPos++
			return true, nil
		}
		return false, nil
	}

	if !it.pagingIterator.HasNext() {
		return false, nil
	}

	row, err := it.pagingIterator.Next()
	if err != nil {
		return false, err
	}
	it.current = row
	return true, nil
}

// Current returns the row MoveNext last advanced to.
func (it *BatchPagingIterator[K, T]) Current() T {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.current
}

// AllLoaded reports whether every upstream has permanently exhausted its
// data. Remaining buffered rows stay drainable through MoveNext.
func (it *BatchPagingIterator[K, T]) AllLoaded() bool {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.state == stateExhausted
}

// LoadNextBatch asks the upstreams for more data. If the completion
// predicate reports that all upstreams are done, the strategy is finished
// and an already completed future is returned without issuing a fetch;
// repeated calls after that stay cheap no-ops. Otherwise a fetch is issued
// for the strategy's exhausted key and the returned future resolves once
// the resulting pages have been merged.
//
// A fetch failure is propagated through the returned future and leaves the
// cursor Active for the caller to retry or Kill; it never kills the cursor
// by itself.
func (it *BatchPagingIterator[K, T]) LoadNextBatch(ctx context.Context) *future.Future[struct{}] {
	it.mu.Lock()

	if err := it.raiseIfTerminal(); err != nil {
		it.mu.Unlock()
		return future.Failed[struct{}](err)
	}
	if it.state == stateAwaitingFetch {
		it.mu.Unlock()
		return future.Failed[struct{}](craterr.NewProtocolViolation(it.ctx, craterr.ErrLoadConcurrent))
	}
	if it.state == stateExhausted {
		it.mu.Unlock()
		return future.Completed(struct{}{})
	}

	if it.allUpstreamsDone() {
		it.log.Debug().Msg("crate: all upstreams exhausted, finishing merge")
		it.pagingIterator.Finish()
		it.state = stateExhausted
		it.mu.Unlock()
		return future.Completed(struct{}{})
	}

	var exhausted *K
	if key, ok := it.pagingIterator.ExhaustedKey(); ok {
		exhausted = &key
		it.log.Debug().Msgf("crate: fetching next page for upstream %v", key)
	} else {
		it.log.Debug().Msg("crate: fetching next page, no upstream named")
	}

	pending := it.fetchMore(ctx, exhausted)
	it.pending = pending
	it.state = stateAwaitingFetch
	it.mu.Unlock()

	result := future.New[struct{}]()
	go it.completeLoad(pending, result)
	return result
}

// completeLoad waits for the provider future and merges its result. It
// only ever observes the provider side; if the cursor was closed or killed
// in the meantime the pages are dropped and the caller's future is failed
// with a state error.
func (it *BatchPagingIterator[K, T]) completeLoad(pending *future.Future[[]KeyIterable[K, T]], result *future.Future[struct{}]) {
	<-pending.C()
	batches, err := pending.Value()

	it.mu.Lock()
	defer it.mu.Unlock()

	it.pending = nil

	if it.state != stateAwaitingFetch {
		it.log.Debug().Msgf("crate: dropping fetch result, cursor is %s", it.state)
		result.Fail(craterr.NewProtocolViolation(it.ctx, craterr.ErrCursorTerminatedLoad))
		return
	}

	if err != nil {
		it.log.Debug().Msgf("crate: fetch failed: %v", err)
		it.state = stateActive
		result.Fail(craterr.NewFetchFailure(it.ctx, craterr.ErrFetchFailed, err))
		return
	}

	if mergeErr := it.pagingIterator.Merge(batches); mergeErr != nil {
		it.state = stateActive
		result.Fail(mergeErr)
		return
	}

	it.state = stateActive
	result.Complete(struct{}{})
}

// MoveToStart rewinds the cursor to the first row merged so far. Only
// available when the underlying iterator is repeatable.
func (it *BatchPagingIterator[K, T]) MoveToStart() error {
	it.mu.Lock()
	defer it.mu.Unlock()

	if err := it.raiseIfTerminal(); err != nil {
		return err
	}
	if it.state == stateAwaitingFetch {
		return craterr.NewProtocolViolation(it.ctx, craterr.ErrAdvanceDuringFetch)
	}

	rows, err := it.pagingIterator.Repeat()
	if err != nil {
		return err
	}

	it.replay = rows
	it.replayPos = 0
	it.replaying = true
	var zero T
	it.current = zero
	return nil
}

// Close finishes the strategy and delivers the single-shot release
// notification with a nil error. All subsequent operations on the cursor
// are protocol violations. Calling Close after the cursor already
// terminated is a no-op.
func (it *BatchPagingIterator[K, T]) Close() {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.state == stateClosed || it.state == stateKilled {
		return
	}

	it.log.Debug().Msg("crate: closing cursor")
	it.pagingIterator.Finish()
	it.state = stateClosed
	it.releaseOnce(nil)
}

// Kill aborts the cursor, delivering err to the release sink. The cursor's
// own resources are released; an outstanding fetch future is left entirely
// untouched, to resolve or fail on the provider's schedule. Killing an
// already terminated cursor is a no-op.
func (it *BatchPagingIterator[K, T]) Kill(err error) {
	it.mu.Lock()
	defer it.mu.Unlock()

	if it.state == stateClosed || it.state == stateKilled {
		return
	}

	it.log.Debug().Msgf("crate: killing cursor: %v", err)
	it.state = stateKilled
	it.releaseOnce(err)
}

func (it *BatchPagingIterator[K, T]) releaseOnce(err error) {
	if it.released {
		return
	}
	it.released = true
	if it.onRelease != nil {
		it.onRelease(err)
	}
}

func (it *BatchPagingIterator[K, T]) raiseIfTerminal() error {
	switch it.state {
	case stateClosed:
		return craterr.NewProtocolViolation(it.ctx, craterr.ErrCursorClosed)
	case stateKilled:
		return craterr.NewProtocolViolation(it.ctx, craterr.ErrCursorKilled)
	}
	return nil
}
