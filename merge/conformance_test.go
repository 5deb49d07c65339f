package merge_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/dvorobiov/crate/future"
	"github.com/dvorobiov/crate/merge"
	"github.com/dvorobiov/crate/merge/mergetest"
)

func TestCursorConformanceDirectResult(t *testing.T) {
	tester := mergetest.Tester[int, int]{
		Supplier: func() *merge.BatchPagingIterator[int, int] {
			pagingIterator := merge.PassThroughRepeatable[int, int]()
			_ = pagingIterator.Merge([]merge.KeyIterable[int, int]{merge.NewKeyIterable(0, []int{0, 1, 2})})
			return merge.NewBatchPagingIterator[int, int](
				context.Background(),
				pagingIterator,
				func(ctx context.Context, exhausted *int) *future.Future[[]merge.KeyIterable[int, int]] {
					return future.Failed[[]merge.KeyIterable[int, int]](errors.New("upstreams exhausted"))
				},
				func() bool { return true },
				func(error) {},
			)
		},
		Expected:   []int{0, 1, 2},
		Repeatable: true,
	}
	tester.Run(t)
}

func TestCursorConformancePagedResult(t *testing.T) {
	rows := make([]int, 10)
	for i := range rows {
		rows[i] = i
	}

	tester := mergetest.Tester[int, int]{
		Supplier: func() *merge.BatchPagingIterator[int, int] {
			pos := 0
			fetchMore := func(ctx context.Context, exhausted *int) *future.Future[[]merge.KeyIterable[int, int]] {
				end := pos + 4
				if end > len(rows) {
					end = len(rows)
				}
				page := rows[pos:end]
				pos = end
				return future.Completed([]merge.KeyIterable[int, int]{merge.NewKeyIterable(1, page)})
			}

			return merge.NewBatchPagingIterator[int, int](
				context.Background(),
				merge.PassThroughRepeatable[int, int](),
				fetchMore,
				func() bool { return pos >= len(rows) },
				func(error) {},
			)
		},
		Expected:   rows,
		Repeatable: true,
	}
	tester.Run(t)
}

func TestCursorConformanceSortedMerge(t *testing.T) {
	shards := map[int][]int{
		1: {0, 3, 6, 9},
		2: {1, 4, 7},
		3: {2, 5, 8},
	}

	tester := mergetest.Tester[int, int]{
		Supplier: func() *merge.BatchPagingIterator[int, int] {
			remaining := map[int][]int{}
			for key, rows := range shards {
				remaining[key] = rows
			}

			fetchMore := func(ctx context.Context, exhausted *int) *future.Future[[]merge.KeyIterable[int, int]] {
				var batches []merge.KeyIterable[int, int]
				poll := func(key int) {
					rows := remaining[key]
					end := 2
					if end > len(rows) {
						end = len(rows)
					}
					batches = append(batches, merge.NewKeyIterable(key, rows[:end]))
					remaining[key] = rows[end:]
				}

				if exhausted != nil {
					poll(*exhausted)
				} else {
					for key := range remaining {
						poll(key)
					}
				}
				return future.Completed(batches)
			}

			allDone := func() bool {
				for _, rows := range remaining {
					if len(rows) > 0 {
						return false
					}
				}
				return true
			}

			return merge.NewBatchPagingIterator[int, int](
				context.Background(),
				merge.NewSortedPagingIterator[int, int](func(a, b int) int { return a - b }, true),
				fetchMore,
				allDone,
				func(error) {},
			)
		},
		Expected:   []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9},
		Repeatable: true,
	}
	tester.Run(t)
}
