package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/anis2566/monorepo-new-sub002/internal/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

func newRedisCache(t *testing.T) (CacheService, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, utils.NewDiscardLogger()), mr
}

func TestRedisCache_SetGetDelete(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, MeritListKey(1), payload{Name: "a", Score: 3}, time.Minute))
	assert.True(t, mr.Exists("ranking:merit:1"))

	var got payload
	require.NoError(t, c.Get(ctx, MeritListKey(1), &got))
	assert.Equal(t, payload{Name: "a", Score: 3}, got)

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, MeritListKey(1), &got), ErrCacheMiss)
}

func TestRedisCache_DeletePattern(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ranking:merit:1:0:100", 1, 0))
	require.NoError(t, c.Set(ctx, "ranking:merit:1:100:100", 1, 0))
	require.NoError(t, c.Set(ctx, "ranking:merit:2:0:100", 1, 0))

	require.NoError(t, c.DeletePattern(ctx, MeritListPattern(1)))
	assert.False(t, mr.Exists("ranking:merit:1:0:100"))
	assert.False(t, mr.Exists("ranking:merit:1:100:100"))
	assert.True(t, mr.Exists("ranking:merit:2:0:100"))
}

func TestRedisCache_IncrWindow(t *testing.T) {
	c, mr := newRedisCache(t)
	ctx := context.Background()
	key := OtpSendCounterKey("01711111111")

	for i := int64(1); i <= 3; i++ {
		n, err := c.IncrWindow(ctx, key, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}
	assert.True(t, mr.TTL(key) > 0 && mr.TTL(key) <= time.Hour)

	mr.FastForward(time.Hour)
	n, err := c.IncrWindow(ctx, key, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache().(*memoryCache)
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "ranking:merit:1:0", payload{Score: 1}, time.Minute))
	require.NoError(t, c.Set(ctx, "ranking:merit:2:0", payload{Score: 2}, 0))

	var got payload
	require.NoError(t, c.Get(ctx, "ranking:merit:1:0", &got))
	assert.Equal(t, 1, got.Score)

	n, _ := c.IncrWindow(ctx, "otp:sends:x", time.Minute)
	assert.Equal(t, int64(1), n)
	n, _ = c.IncrWindow(ctx, "otp:sends:x", time.Minute)
	assert.Equal(t, int64(2), n)

	now = now.Add(2 * time.Minute)
	assert.ErrorIs(t, c.Get(ctx, "ranking:merit:1:0", &got), ErrCacheMiss)
	n, _ = c.IncrWindow(ctx, "otp:sends:x", time.Minute)
	assert.Equal(t, int64(1), n)

	require.NoError(t, c.DeletePattern(ctx, MeritListPattern(2)))
	assert.ErrorIs(t, c.Get(ctx, "ranking:merit:2:0", &got), ErrCacheMiss)
}

func TestWithJitter(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := WithJitter(time.Minute)
		assert.GreaterOrEqual(t, d, time.Minute)
		assert.LessOrEqual(t, d, time.Minute+6*time.Second)
	}
	assert.Equal(t, time.Duration(0), WithJitter(0))
}
