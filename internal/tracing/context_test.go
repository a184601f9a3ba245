package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewTraceID(t *testing.T) {
	id1 := NewTraceID()
	id2 := NewTraceID()

	assert.NotEmpty(t, id1)
	assert.Len(t, id1, 36)
	assert.NotEqual(t, id1, id2)
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		assert.Empty(t, GetTraceID(ctx))
		assert.Empty(t, GetRequestID(ctx))
		assert.Empty(t, GetChainID(ctx))
	})

	t.Run("set and get", func(t *testing.T) {
		ctx := WithTraceID(ctx, "trace-1")
		ctx = WithRequestID(ctx, "req-1")
		ctx = WithChainID(ctx, "chain-1")

		assert.Equal(t, "trace-1", GetTraceID(ctx))
		assert.Equal(t, "req-1", GetRequestID(ctx))
		assert.Equal(t, "chain-1", GetChainID(ctx))
	})
}

func TestFromContext(t *testing.T) {
	ctx := WithTraceID(context.Background(), "trace-1")
	ctx = WithChainID(ctx, "chain-1")

	tc := FromContext(ctx)
	assert.Equal(t, &TraceContext{TraceID: "trace-1", ChainID: "chain-1"}, tc)
}

func TestNewContext(t *testing.T) {
	t.Run("all fields", func(t *testing.T) {
		tc := &TraceContext{TraceID: "t", RequestID: "r", ChainID: "c"}
		ctx := NewContext(context.Background(), tc)
		assert.Equal(t, tc, FromContext(ctx))
	})

	t.Run("partial fields", func(t *testing.T) {
		ctx := NewContext(context.Background(), &TraceContext{RequestID: "r"})
		assert.Empty(t, GetTraceID(ctx))
		assert.Equal(t, "r", GetRequestID(ctx))
	})
}

func TestNewRequestContext(t *testing.T) {
	t.Run("assigns trace id", func(t *testing.T) {
		ctx := NewRequestContext(context.Background())
		assert.NotEmpty(t, GetTraceID(ctx))
	})

	t.Run("keeps existing trace id", func(t *testing.T) {
		ctx := NewRequestContext(WithTraceID(context.Background(), "upstream"))
		assert.Equal(t, "upstream", GetTraceID(ctx))
	})
}
