// Package mergetest drives a paging cursor through the canonical operation
// sequences of the cursor protocol and verifies its behaviour. Production
// code must not import it.
package mergetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	craterr "github.com/dvorobiov/crate/errors"
	"github.com/dvorobiov/crate/merge"
)

// Tester verifies protocol conformance of cursors built by Supplier. Each
// check starts from a fresh cursor, so the supplier must return an
// independently consumable instance per call.
type Tester[K comparable, T any] struct {
	Supplier func() *merge.BatchPagingIterator[K, T]
	Expected []T

	// Repeatable enables the re-consumption checks; leave false when the
	// underlying strategy is one-shot.
	Repeatable bool
}

// Run executes every conformance check as a subtest.
func (tt Tester[K, T]) Run(t *testing.T) {
	t.Run("consumes all rows in order", tt.testProperConsumption)
	t.Run("load after exhaustion is a no-op", tt.testLoadAfterExhaustion)
	t.Run("behaviour after close", tt.testBehaviourAfterClose)
	t.Run("behaviour after kill", tt.testBehaviourAfterKill)
	if tt.Repeatable {
		t.Run("re-consumption matches rows", tt.testReConsumption)
	}
}

func (tt Tester[K, T]) testProperConsumption(t *testing.T) {
	cursor := tt.Supplier()
	defer cursor.Close()

	rows := drain(t, cursor)
	assert.Equal(t, tt.Expected, rows)
}

func (tt Tester[K, T]) testLoadAfterExhaustion(t *testing.T) {
	ctx := context.Background()
	cursor := tt.Supplier()
	defer cursor.Close()

	drain(t, cursor)
	require.True(t, cursor.AllLoaded())

	// repeated loads after exhaustion must all resolve immediately
	for i := 0; i < 3; i++ {
		f := cursor.LoadNextBatch(ctx)
		require.True(t, f.Done())
		_, err := f.Await(ctx)
		require.NoError(t, err)
	}
}

func (tt Tester[K, T]) testBehaviourAfterClose(t *testing.T) {
	ctx := context.Background()
	cursor := tt.Supplier()
	cursor.Close()

	_, err := cursor.MoveNext()
	assert.ErrorIs(t, err, craterr.ProtocolViolation)

	_, err = cursor.LoadNextBatch(ctx).Await(ctx)
	assert.ErrorIs(t, err, craterr.ProtocolViolation)

	assert.ErrorIs(t, cursor.MoveToStart(), craterr.ProtocolViolation)

	// closing again stays a no-op
	cursor.Close()
}

func (tt Tester[K, T]) testBehaviourAfterKill(t *testing.T) {
	ctx := context.Background()
	cursor := tt.Supplier()
	cursor.Kill(assert.AnError)

	_, err := cursor.MoveNext()
	assert.ErrorIs(t, err, craterr.ProtocolViolation)

	_, err = cursor.LoadNextBatch(ctx).Await(ctx)
	assert.ErrorIs(t, err, craterr.ProtocolViolation)
}

func (tt Tester[K, T]) testReConsumption(t *testing.T) {
	cursor := tt.Supplier()
	defer cursor.Close()

	first := drain(t, cursor)
	require.Equal(t, tt.Expected, first)

	// a replayed cursor must yield the full history from the start
	require.NoError(t, cursor.MoveToStart())
	second := redrain(t, cursor)
	assert.Equal(t, tt.Expected, second)
}

// drain consumes the cursor to exhaustion, loading more batches whenever
// the local sequence runs dry.
func drain[K comparable, T any](t *testing.T, cursor *merge.BatchPagingIterator[K, T]) []T {
	t.Helper()
	ctx := context.Background()

	var rows []T
	for {
		for {
			ok, err := cursor.MoveNext()
			require.NoError(t, err)
			if !ok {
				break
			}
			rows = append(rows, cursor.Current())
		}

		if cursor.AllLoaded() {
			return rows
		}

		_, err := cursor.LoadNextBatch(ctx).Await(ctx)
		require.NoError(t, err)
	}
}

// redrain consumes a cursor that was rewound with MoveToStart; no further
// loads are issued.
func redrain[K comparable, T any](t *testing.T, cursor *merge.BatchPagingIterator[K, T]) []T {
	t.Helper()

	var rows []T
	for {
		ok, err := cursor.MoveNext()
		require.NoError(t, err)
		if !ok {
			return rows
		}
		rows = append(rows, cursor.Current())
	}
}
