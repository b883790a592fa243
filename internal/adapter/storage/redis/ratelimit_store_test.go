package redis_test

import (
	"context"
	"testing"
	"time"

	"creator-ledger/internal/adapter/storage/redis"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*redis.RateLimitStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return redis.NewRateLimitStore(client), mr
}

func TestRateLimitStore_Allow(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("allows attempts within limit", func(t *testing.T) {
		for i := 1; i <= 3; i++ {
			allowed, err := store.Allow(ctx, "user1:payments", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, allowed, "attempt %d should be allowed", i)
		}
	})

	t.Run("blocks attempts over limit", func(t *testing.T) {
		allowed, err := store.Allow(ctx, "user1:payments", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, allowed)
	})

	t.Run("different keys are independent", func(t *testing.T) {
		allowed, err := store.Allow(ctx, "user2:payments", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	})
}

func TestRateLimitStore_SlidingWindow(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := store.Allow(ctx, "user3:payments", 2, 500*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := store.Allow(ctx, "user3:payments", 2, 500*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed, "third attempt inside window should be denied")

	// Once the earlier attempts slide out of the window, new attempts pass.
	mr.FastForward(time.Second)
	time.Sleep(600 * time.Millisecond)

	allowed, err = store.Allow(ctx, "user3:payments", 2, 500*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed, "attempts outside the window should not count")
}
