package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	craterr "github.com/dvorobiov/crate/errors"
)

func drainIterator[K comparable, T any](t *testing.T, it PagingIterator[K, T]) []T {
	t.Helper()

	var rows []T
	for it.HasNext() {
		row, err := it.Next()
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return rows
}

func TestPassThroughKeepsRowOrder(t *testing.T) {
	it := PassThroughOneShot[int, int]()

	require.NoError(t, it.Merge([]KeyIterable[int, int]{NewKeyIterable(0, []int{0, 1, 2})}))
	require.NoError(t, it.Merge([]KeyIterable[int, int]{NewKeyIterable(1, []int{3, 4})}))
	it.Finish()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, drainIterator[int, int](t, it))
}

func TestPassThroughExhaustedKey(t *testing.T) {
	it := PassThroughOneShot[int, string]()

	_, ok := it.ExhaustedKey()
	assert.False(t, ok, "no key before the first merge")

	require.NoError(t, it.Merge([]KeyIterable[int, string]{NewKeyIterable(7, []string{"a"})}))
	key, ok := it.ExhaustedKey()
	assert.True(t, ok)
	assert.Equal(t, 7, key)

	require.NoError(t, it.Merge([]KeyIterable[int, string]{NewKeyIterable[int, string](9, nil)}))
	key, ok = it.ExhaustedKey()
	assert.True(t, ok)
	assert.Equal(t, 9, key, "an empty page still names its upstream")
}

func TestPassThroughMergeAfterFinish(t *testing.T) {
	it := PassThroughOneShot[int, int]()
	it.Finish()

	err := it.Merge([]KeyIterable[int, int]{NewKeyIterable(0, []int{1})})
	assert.ErrorIs(t, err, craterr.ProtocolViolation)
}

func TestPassThroughFinishIsIdempotent(t *testing.T) {
	it := PassThroughRepeatable[int, int]()
	require.NoError(t, it.Merge([]KeyIterable[int, int]{NewKeyIterable(0, []int{1, 2})}))

	it.Finish()
	it.Finish()

	assert.Equal(t, []int{1, 2}, drainIterator[int, int](t, it))
}

func TestPassThroughNextPastEnd(t *testing.T) {
	it := PassThroughOneShot[int, int]()

	_, err := it.Next()
	assert.ErrorIs(t, err, craterr.ProtocolViolation)
}

func TestPassThroughRepeat(t *testing.T) {
	t.Run("yields full history regardless of drain position", func(t *testing.T) {
		it := PassThroughRepeatable[int, int]()
		require.NoError(t, it.Merge([]KeyIterable[int, int]{NewKeyIterable(0, []int{0, 1, 2})}))
		require.NoError(t, it.Merge([]KeyIterable[int, int]{NewKeyIterable(1, []int{3, 4})}))

		// partially drain
		for i := 0; i < 3; i++ {
			_, err := it.Next()
			require.NoError(t, err)
		}

		rows, err := it.Repeat()
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, rows)

		// the view is independent: consuming it must not disturb the iterator
		rows[0] = 99
		again, err := it.Repeat()
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, again)

		// remaining rows still drainable
		assert.Equal(t, []int{3, 4}, drainIterator[int, int](t, it))
	})

	t.Run("fails on one-shot iterator", func(t *testing.T) {
		it := PassThroughOneShot[int, int]()
		_, err := it.Repeat()
		assert.ErrorIs(t, err, craterr.ProtocolViolation)
	})
}
