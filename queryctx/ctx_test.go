package queryctx

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewContextWithQueryId(t *testing.T) {
	t.Run("base case", func(t *testing.T) {

		ctx := NewContextWithQueryId(context.Background(), "abc")
		ctx1 := NewContextWithQueryId(context.Background(), "dfg")
		ctx2 := NewContextWithQueryId(context.Background(), "ghj")
		queryId := QueryIdFromContext(ctx)
		queryId1 := QueryIdFromContext(ctx1)
		queryId2 := QueryIdFromContext(ctx2)
		assert.Equal(t, "abc", queryId)
		assert.Equal(t, "dfg", queryId1)
		assert.Equal(t, "ghj", queryId2)
	})
	t.Run("it maintains timeout", func(t *testing.T) {

		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()
		ctx1 := NewContextWithQueryId(ctx, "dfg")
		queryId1 := QueryIdFromContext(ctx1)
		assert.Equal(t, "dfg", queryId1)
		dl, ok := ctx.Deadline()
		dl1, ok1 := ctx1.Deadline()
		assert.Equal(t, dl, dl1)
		assert.True(t, ok)
		assert.True(t, ok1)
	})
}

func TestNewContextWithShardId(t *testing.T) {
	ctx := NewContextWithShardId(context.Background(), "s1")
	assert.Equal(t, "s1", ShardIdFromContext(ctx))
	assert.Equal(t, "", ShardIdFromContext(context.Background()))
}

func TestNewContextFromBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ctx = NewContextWithQueryId(ctx, "q1")
	ctx = NewContextWithShardId(ctx, "s1")
	cancel()

	fresh := NewContextFromBackground(ctx)
	assert.NoError(t, fresh.Err())
	assert.Equal(t, "q1", QueryIdFromContext(fresh))
	assert.Equal(t, "s1", ShardIdFromContext(fresh))
}
