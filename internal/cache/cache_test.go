package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", string(got))

	now = now.Add(2 * time.Minute)
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Delete(ctx, "a"))
	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Evicts(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(2)

	require.NoError(t, c.Set(ctx, "first", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "second", []byte("2"), time.Hour))
	require.NoError(t, c.Set(ctx, "third", []byte("3"), time.Hour))

	_, err := c.Get(ctx, "first")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "third")
	assert.NoError(t, err)
}

func TestStatusKey(t *testing.T) {
	assert.Equal(t, "status:abc", StatusKey("abc"))
}

func TestMemoryClient_ZeroTTLNotStored(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryClient(2)

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	_, err := c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
