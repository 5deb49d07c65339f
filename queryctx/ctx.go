package queryctx

import (
	"context"
)

// Key names to look for query scoped values in context
// using custom type to prevent key collision
type contextKey int

const (
	QueryIdContextKey contextKey = iota
	ShardIdContextKey
)

// NewContextWithQueryId creates a new context with queryId value.
// The query id will be displayed in log messages and attached to errors
// raised by the merge layer.
func NewContextWithQueryId(ctx context.Context, queryId string) context.Context {
	return context.WithValue(ctx, QueryIdContextKey, queryId)
}

// QueryIdFromContext retrieves the queryId stored in context.
func QueryIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	queryId, ok := ctx.Value(QueryIdContextKey).(string)
	if !ok {
		return ""
	}
	return queryId
}

// NewContextWithShardId creates a new context with shardId value.
// The shard id names the upstream a fetch operation is directed at.
func NewContextWithShardId(ctx context.Context, shardId string) context.Context {
	return context.WithValue(ctx, ShardIdContextKey, shardId)
}

// ShardIdFromContext retrieves the shardId stored in context.
func ShardIdFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}

	shardId, ok := ctx.Value(ShardIdContextKey).(string)
	if !ok {
		return ""
	}
	return shardId
}

// NewContextFromBackground copies the query scoped values of ctx onto a
// fresh background context. Used when a fetch must outlive the caller's
// deadline but keep its identifying fields.
func NewContextFromBackground(ctx context.Context) context.Context {
	queryId := QueryIdFromContext(ctx)
	shardId := ShardIdFromContext(ctx)

	newCtx := NewContextWithQueryId(context.Background(), queryId)
	newCtx = NewContextWithShardId(newCtx, shardId)

	return newCtx
}
