package upstream

import (
	"context"
	"sync"

	craterr "github.com/dvorobiov/crate/errors"
	"github.com/dvorobiov/crate/future"
	"github.com/dvorobiov/crate/internal/config"
	"github.com/dvorobiov/crate/internal/fetcher"
	"github.com/dvorobiov/crate/logger"
	"github.com/dvorobiov/crate/merge"
	"github.com/dvorobiov/crate/queryctx"
)

// Group owns a set of keyed sources and exposes them through the cursor's
// collaborator contracts. A fetch-more round polls either the single
// upstream the merge strategy named or, when none is named, every upstream
// that still has data, fanning the page requests out over a bounded worker
// pool.
type Group[K comparable, T any] struct {
	mu       sync.Mutex
	sources  map[K]Source[T]
	done     map[K]bool
	released bool

	cfg *config.Config
	log *logger.Logger
}

func NewGroup[K comparable, T any](ctx context.Context, sources map[K]Source[T], cfg *config.Config) *Group[K, T] {
	if cfg == nil {
		cfg = config.WithDefaults()
	}

	return &Group[K, T]{
		sources: sources,
		done:    make(map[K]bool, len(sources)),
		cfg:     cfg,
		log:     logger.WithContext(queryctx.QueryIdFromContext(ctx), ""),
	}
}

// AllExhausted reports whether every source has permanently run out of
// pages. Serves as the cursor's completion predicate.
func (g *Group[K, T]) AllExhausted() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	for key := range g.sources {
		if !g.done[key] {
			return false
		}
	}
	return true
}

// FetchMore returns the fetch-more provider for this group. An exhausted
// key that is unknown or already done falls back to polling every upstream
// that still has pages, so a round always makes progress while data
// remains; once nothing is left the round yields an empty result, which
// the merge layer treats as a mergeable no-op.
func (g *Group[K, T]) FetchMore() merge.FetchMoreFunc[K, T] {
	return func(ctx context.Context, exhausted *K) *future.Future[[]merge.KeyIterable[K, T]] {
		result := future.New[[]merge.KeyIterable[K, T]]()
		go g.fetchRound(ctx, exhausted, result)
		return result
	}
}

func (g *Group[K, T]) fetchRound(ctx context.Context, exhausted *K, result *future.Future[[]merge.KeyIterable[K, T]]) {
	if g.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.FetchTimeout)
		defer cancel()
	}

	targets := g.targets(exhausted)
	if len(targets) == 0 {
		result.Complete(nil)
		return
	}

	inputChan := make(chan fetcher.FetchableItems[merge.KeyIterable[K, T]], len(targets))
	for _, key := range targets {
		inputChan <- &pageRequest[K, T]{key: key, group: g}
	}
	close(inputChan)

	f, err := fetcher.NewConcurrentFetcher[*pageRequest[K, T]](ctx, g.cfg.MaxFetchConcurrency, inputChan)
	if err != nil {
		result.Fail(err)
		return
	}

	outChan, _, err := f.Start()
	if err != nil {
		result.Fail(err)
		return
	}

	var batches []merge.KeyIterable[K, T]
	for batch := range outChan {
		batches = append(batches, batch)
	}

	if err := f.Err(); err != nil {
		result.Fail(craterr.WrapErr(err, "upstream fetch round failed"))
		return
	}
	result.Complete(batches)
}

// targets resolves which upstreams the round should poll.
func (g *Group[K, T]) targets(exhausted *K) []K {
	g.mu.Lock()
	defer g.mu.Unlock()

	if exhausted != nil {
		if _, ok := g.sources[*exhausted]; ok && !g.done[*exhausted] {
			return []K{*exhausted}
		}
		// the named upstream already delivered its last page; poll the
		// rest so the round still makes progress
		g.log.Debug().Msgf("crate: upstream %v has no more pages, polling remaining upstreams", *exhausted)
	}

	var keys []K
	for key := range g.sources {
		if !g.done[key] {
			keys = append(keys, key)
		}
	}
	return keys
}

func (g *Group[K, T]) markDone(key K) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.done[key] = true
}

// Release implements the cursor's release sink: a nil error clean-closes
// every source, a non-nil error kills them. Effective only once.
func (g *Group[K, T]) Release(err error) {
	g.mu.Lock()
	if g.released {
		g.mu.Unlock()
		return
	}
	g.released = true
	sources := g.sources
	g.mu.Unlock()

	for key, src := range sources {
		if err != nil {
			src.Kill(err)
			continue
		}
		if closeErr := src.Close(); closeErr != nil {
			g.log.Warn().Msgf("crate: failed to close upstream %v: %v", key, closeErr)
		}
	}
}

// NewCursor wires the group to a fresh cursor over pagingIterator.
func (g *Group[K, T]) NewCursor(ctx context.Context, pagingIterator merge.PagingIterator[K, T]) *merge.BatchPagingIterator[K, T] {
	return merge.NewBatchPagingIterator(ctx, pagingIterator, g.FetchMore(), g.AllExhausted, g.Release)
}

// pageRequest is one upstream page fetch scheduled on the worker pool.
type pageRequest[K comparable, T any] struct {
	key   K
	group *Group[K, T]
}

var _ fetcher.FetchableItems[merge.KeyIterable[int, any]] = (*pageRequest[int, any])(nil)

func (r *pageRequest[K, T]) Fetch(ctx context.Context) (merge.KeyIterable[K, T], error) {
	r.group.mu.Lock()
	src := r.group.sources[r.key]
	r.group.mu.Unlock()

	rows, hasMore, err := src.FetchPage(ctx)
	if err != nil {
		return merge.KeyIterable[K, T]{}, err
	}

	if !hasMore {
		r.group.markDone(r.key)
	}
	return merge.NewKeyIterable(r.key, rows), nil
}
