package fetcher

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// FetchableItems is one unit of work for a Fetcher: typically a single
// upstream page request.
type FetchableItems[OutputType any] interface {
	Fetch(ctx context.Context) (OutputType, error)
}

// Fetcher runs the queued items with bounded concurrency and streams
// their outputs.
type Fetcher[OutputType any] interface {
	// Err returns the first failure, available after the output channel
	// closed.
	Err() error
	Start() (<-chan OutputType, context.CancelFunc, error)
}

type concurrentFetcher[I FetchableItems[O], O any] struct {
	cancelFunc context.CancelFunc
	inputChan  <-chan FetchableItems[O]
	outChan    chan O
	err        error
	nWorkers   int
	mu         sync.Mutex
	start      sync.Once
	ctx        context.Context
}

func (rf *concurrentFetcher[I, O]) Err() error {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	return rf.err
}

func (rf *concurrentFetcher[I, O]) Start() (<-chan O, context.CancelFunc, error) {
	rf.start.Do(func() {
		ctx, cancel := context.WithCancel(rf.ctx)
		rf.cancelFunc = cancel

		group, groupCtx := errgroup.WithContext(ctx)
		for i := 0; i < rf.nWorkers; i++ {
			group.Go(func() error {
				return rf.work(groupCtx)
			})
		}

		go func() {
			// the first worker error is kept for Err, the rest of
			// the workers stop via groupCtx
			if err := group.Wait(); err != nil {
				rf.setErr(err)
			}
			close(rf.outChan)
		}()
	})

	return rf.outChan, rf.cancelFunc, nil
}

func (rf *concurrentFetcher[I, O]) work(ctx context.Context) error {
	for {
		select {
		case item, ok := <-rf.inputChan:
			if !ok {
				return nil
			}

			result, err := item.Fetch(ctx)
			if err != nil {
				return err
			}

			select {
			case rf.outChan <- result:
			case <-ctx.Done():
				return ctx.Err()
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (rf *concurrentFetcher[I, O]) setErr(err error) {
	rf.mu.Lock()
	defer rf.mu.Unlock()
	if rf.err == nil {
		rf.err = err
	}
}

func NewConcurrentFetcher[I FetchableItems[O], O any](ctx context.Context, nWorkers int, inputChan <-chan FetchableItems[O]) (Fetcher[O], error) {
	if nWorkers < 1 {
		nWorkers = 1
	}

	fetcher := &concurrentFetcher[I, O]{
		inputChan: inputChan,
		outChan:   make(chan O, nWorkers),
		nWorkers:  nWorkers,
		ctx:       ctx,
	}

	return fetcher, nil
}
