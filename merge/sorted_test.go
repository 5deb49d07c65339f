package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	craterr "github.com/dvorobiov/crate/errors"
)

func intCmp(a, b int) int {
	return a - b
}

func TestSortedMergeAcrossUpstreams(t *testing.T) {
	it := NewSortedPagingIterator[string, int](intCmp, false)

	require.NoError(t, it.Merge([]KeyIterable[string, int]{
		NewKeyIterable("s1", []int{1, 4, 7}),
		NewKeyIterable("s2", []int{2, 3, 9}),
		NewKeyIterable("s3", []int{5, 6, 8}),
	}))
	it.Finish()

	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9}, drainIterator[string, int](t, it))
}

func TestSortedStopsAtOrderingFrontier(t *testing.T) {
	it := NewSortedPagingIterator[string, int](intCmp, false)

	require.NoError(t, it.Merge([]KeyIterable[string, int]{
		NewKeyIterable("s1", []int{1, 2}),
		NewKeyIterable("s2", []int{5}),
	}))

	// drain 1, 2; then s1 runs dry and 5 may not be emitted yet because
	// s1 could still produce 3 or 4
	row, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, 1, row)
	row, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, 2, row)

	assert.False(t, it.HasNext())
	key, ok := it.ExhaustedKey()
	require.True(t, ok)
	assert.Equal(t, "s1", key)

	// refilling s1 moves the frontier
	require.NoError(t, it.Merge([]KeyIterable[string, int]{NewKeyIterable("s1", []int{3})}))
	assert.True(t, it.HasNext())
	row, err = it.Next()
	require.NoError(t, err)
	assert.Equal(t, 3, row)

	// finish drains the remainder regardless of empty buffers
	assert.False(t, it.HasNext())
	it.Finish()
	assert.Equal(t, []int{5}, drainIterator[string, int](t, it))
}

func TestSortedEmptyPageLeavesFrontier(t *testing.T) {
	it := NewSortedPagingIterator[string, int](intCmp, false)

	require.NoError(t, it.Merge([]KeyIterable[string, int]{
		NewKeyIterable[string, int]("s1", nil),
		NewKeyIterable("s2", []int{5}),
	}))

	// s1 announced itself with no rows, so nothing can be emitted safely
	assert.False(t, it.HasNext())
	key, ok := it.ExhaustedKey()
	require.True(t, ok)
	assert.Equal(t, "s1", key)

	// an empty refill does not move the frontier either
	require.NoError(t, it.Merge([]KeyIterable[string, int]{NewKeyIterable[string, int]("s1", nil)}))
	assert.False(t, it.HasNext())

	it.Finish()
	assert.Equal(t, []int{5}, drainIterator[string, int](t, it))
}

func TestSortedNoExhaustedKeyAfterFinish(t *testing.T) {
	it := NewSortedPagingIterator[string, int](intCmp, false)
	require.NoError(t, it.Merge([]KeyIterable[string, int]{NewKeyIterable("s1", []int{1})}))

	_, err := it.Next()
	require.NoError(t, err)
	_, ok := it.ExhaustedKey()
	assert.True(t, ok)

	it.Finish()
	_, ok = it.ExhaustedKey()
	assert.False(t, ok)
}

func TestSortedRepeat(t *testing.T) {
	it := NewSortedPagingIterator[string, int](intCmp, true)

	require.NoError(t, it.Merge([]KeyIterable[string, int]{
		NewKeyIterable("s1", []int{1, 3}),
		NewKeyIterable("s2", []int{2, 4}),
	}))
	it.Finish()

	assert.Equal(t, []int{1, 2, 3, 4}, drainIterator[string, int](t, it))

	rows, err := it.Repeat()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, rows)
}

func TestSortedMergeAfterFinish(t *testing.T) {
	it := NewSortedPagingIterator[string, int](intCmp, false)
	it.Finish()

	err := it.Merge([]KeyIterable[string, int]{NewKeyIterable("s1", []int{1})})
	assert.ErrorIs(t, err, craterr.ProtocolViolation)
}
