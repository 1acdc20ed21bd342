package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterRefillsAfterWindow(t *testing.T) {
	l := NewMemoryLimiter(10*time.Second, 2).(*memoryLimiter)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, _ := l.Allow(ctx, "1.2.3.4")
	assert.False(t, ok, "third request within window should be rejected")

	ok, _ = l.Allow(ctx, "5.6.7.8")
	assert.True(t, ok, "other clients have their own bucket")

	now = now.Add(10 * time.Second)
	ok, _ = l.Allow(ctx, "1.2.3.4")
	assert.True(t, ok, "bucket refills after a full window")
}

func TestMemoryLimiterEvictsIdleBuckets(t *testing.T) {
	l := NewMemoryLimiter(time.Second, 1).(*memoryLimiter)
	now := time.Unix(0, 0)
	l.now = func() time.Time { return now }

	for i := 0; i < 4096; i++ {
		_, _ = l.Allow(context.Background(), time.Duration(i).String())
	}
	require.Len(t, l.buckets, 4096)

	now = now.Add(2 * time.Second)
	_, _ = l.Allow(context.Background(), "fresh")
	assert.Len(t, l.buckets, 1)
	assert.Equal(t, time.Second, l.Window())
}

func TestMemoryLimiterKeepsFractionalRefill(t *testing.T) {
	// 每秒补一个令牌
	l := NewMemoryLimiter(10*time.Second, 10).(*memoryLimiter)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		ok, _ := l.Allow(ctx, "k")
		require.True(t, ok)
	}

	now = now.Add(1500 * time.Millisecond)
	ok, _ := l.Allow(ctx, "k")
	assert.True(t, ok, "one token after 1.5s")
	ok, _ = l.Allow(ctx, "k")
	assert.False(t, ok)

	// 剩下的 0.5s 加上新的 0.5s 凑满一个令牌
	now = now.Add(500 * time.Millisecond)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok, "leftover half second must carry over")
}

func TestRedisLimiterFixedWindow(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	l := NewRedisLimiter(client, 10*time.Second, 2).(*redisLimiter)
	now := time.Unix(1_700_000_005, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Allow(ctx, "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, ok, "third request in the window is rejected")

	key := fmt.Sprintf("ratelimit:1.2.3.4:%d", now.UnixNano()/int64(10*time.Second))
	count, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "3", count)
	assert.Equal(t, 10*time.Second, mr.TTL(key))

	// 下一个窗口使用新的 key
	now = now.Add(10 * time.Second)
	ok, err = l.Allow(ctx, "1.2.3.4")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 10*time.Second, l.Window())
}

func TestRedisLimiterWrapsConnectionError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	ok, err := NewRedisLimiter(client, time.Second, 1).Allow(context.Background(), "k")

	assert.False(t, ok)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to increment rate limit counter")
}
