package limiter

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// defaultMaxKeys KeyedLimiter 最多跟踪的客户端数，超过后整体重置.
const defaultMaxKeys = 10_000

// Limiter 判断标识为 key 的请求是否放行.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// KeyedLimiter 为每个 key 维护独立的令牌桶.
type KeyedLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	r       rate.Limit
	b       int
	maxKeys int
}

// NewKeyedLimiter 创建按 key 隔离的令牌桶.
func NewKeyedLimiter(r rate.Limit, b int) *KeyedLimiter {
	return &KeyedLimiter{
		buckets: make(map[string]*rate.Limiter),
		r:       r,
		b:       b,
		maxKeys: defaultMaxKeys,
	}
}

// Allow 实现 Limiter.
func (l *KeyedLimiter) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	bucket, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= l.maxKeys {
			clear(l.buckets)
		}
		bucket = rate.NewLimiter(l.r, l.b)
		l.buckets[key] = bucket
	}
	l.mu.Unlock()
	return bucket.Allow(), nil
}
