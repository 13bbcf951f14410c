package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Total int64    `json:"total"`
	Names []string `json:"names"`
}

func TestMemoryCache_RoundTripAndMiss(t *testing.T) {
	t.Parallel()
	c := NewMemoryCache(8, time.Minute)
	ctx := context.Background()

	var got payload
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrMiss)

	in := payload{Total: 3, Names: []string{"a"}}
	require.NoError(t, c.Set(ctx, "k", in, time.Minute))
	in.Names[0] = "mutated"

	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, payload{Total: 3, Names: []string{"a"}}, got)
}

func TestMemoryCache_Expires(t *testing.T) {
	t.Parallel()
	c := NewMemoryCache(8, 20*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", 1, 0))
	assert.Eventually(t, func() bool {
		var v int
		return c.Get(ctx, "k", &v) == ErrMiss
	}, time.Second, 10*time.Millisecond)
}

func TestMemoryCache_EvictsOldest(t *testing.T) {
	t.Parallel()
	c := NewMemoryCache(2, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", 1, 0))
	require.NoError(t, c.Set(ctx, "b", 2, 0))
	require.NoError(t, c.Set(ctx, "c", 3, 0))

	var v int
	assert.ErrorIs(t, c.Get(ctx, "a", &v), ErrMiss)
	assert.Equal(t, 2, c.Len())
}
