// Package ratelimit 提供按 key 的固定窗口限流器。
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Limiter 判断某个 key 在当前窗口内是否还能继续请求。
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
	Window() time.Duration
}

// redisLimiter 使用 INCR + EXPIRE，多实例共享计数。
type redisLimiter struct {
	client   *redis.Client
	window   time.Duration
	capacity int
	now      func() time.Time
}

// NewRedisLimiter 创建基于 Redis 的限流器。
func NewRedisLimiter(client *redis.Client, window time.Duration, capacity int) Limiter {
	return &redisLimiter{client: client, window: window, capacity: capacity, now: time.Now}
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	slot := l.now().UnixNano() / int64(l.window)
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, slot)

	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	return incr.Val() <= int64(l.capacity), nil
}

func (l *redisLimiter) Window() time.Duration { return l.window }

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// memoryLimiter 是单实例的令牌桶实现。
type memoryLimiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	window   time.Duration
	capacity int
	now      func() time.Time
}

// NewMemoryLimiter 创建进程内限流器，每个窗口补满 capacity 个令牌。
func NewMemoryLimiter(window time.Duration, capacity int) Limiter {
	return &memoryLimiter{
		buckets:  make(map[string]*bucket),
		window:   window,
		capacity: capacity,
		now:      time.Now,
	}
}

func (l *memoryLimiter) Allow(_ context.Context, key string) (bool, error) {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	b := l.buckets[key]
	if b == nil {
		l.evictIdle(now)
		b = &bucket{tokens: l.capacity, lastRefill: now}
		l.buckets[key] = b
	}
	if elapsed := now.Sub(b.lastRefill); elapsed > 0 {
		add := int(float64(l.capacity) * (float64(elapsed) / float64(l.window)))
		if add > 0 {
			b.tokens += add
			if b.tokens >= l.capacity {
				b.tokens = l.capacity
				b.lastRefill = now
			} else {
				// 只推进已兑换成令牌的那部分时间，余数留到下次
				b.lastRefill = b.lastRefill.Add(time.Duration(add) * l.window / time.Duration(l.capacity))
			}
		}
	}
	if b.tokens <= 0 {
		return false, nil
	}
	b.tokens--
	return true, nil
}

// evictIdle 清理已经补满的桶，防止 map 无限增长。调用方持有锁。
func (l *memoryLimiter) evictIdle(now time.Time) {
	if len(l.buckets) < 4096 {
		return
	}
	for k, b := range l.buckets {
		if now.Sub(b.lastRefill) >= l.window {
			delete(l.buckets, k)
		}
	}
}

func (l *memoryLimiter) Window() time.Duration { return l.window }
