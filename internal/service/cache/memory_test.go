package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	_, err := c.Get(ctx, "skills")
	assert.ErrorIs(t, err, ErrMiss)

	require.NoError(t, c.Set(ctx, "skills", "[]", 0))
	v, err := c.Get(ctx, "skills")
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Unix(1000, 0)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	now = now.Add(59 * time.Second)
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	now = now.Add(time.Second)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestMemoryCacheDel(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "a", "1", 0))
	require.NoError(t, c.Set(ctx, "b", "2", 0))

	n, err := c.Del(ctx, "a", "b", "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = c.Get(ctx, "a")
	assert.ErrorIs(t, err, ErrMiss)
}

func TestRedisCache(t *testing.T) {
	url := os.Getenv("COPILOT_TEST_REDIS_URL")
	if url == "" {
		t.Skip("COPILOT_TEST_REDIS_URL not set")
	}

	ctx := context.Background()
	c, err := NewRedisCache(ctx, url, "copilot-test:")
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	v, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", v)

	n, err := c.Del(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrMiss)
}
