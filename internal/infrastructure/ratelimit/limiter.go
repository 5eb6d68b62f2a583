package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultPrefix = "apistudio:ratelimit"

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration // time until the window resets; zero when allowed
}

// Limiter allows at most limit attempts per key within each window.
type Limiter struct {
	rdb    redis.Cmdable
	limit  int
	window time.Duration
	prefix string
}

// NewLimiter returns a Limiter backed by rdb. The namespace separates
// counters of different endpoints (for example "login").
func NewLimiter(rdb redis.Cmdable, namespace string, limit int, window time.Duration) *Limiter {
	return &Limiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: defaultPrefix + ":" + namespace,
	}
}

func (l *Limiter) key(k string) string {
	return l.prefix + ":" + k
}

// Allow counts one attempt for key and reports whether it is within the limit.
// On Redis errors the attempt is allowed and the error returned.
func (l *Limiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.key(key)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{Allowed: true, Remaining: l.limit}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	ttl := pttl.Val()
	if ttl < 0 {
		// First hit in this window (or a counter left without expiry).
		if err := l.rdb.PExpire(ctx, k, l.window).Err(); err != nil {
			return Decision{Allowed: true, Remaining: l.limit}, fmt.Errorf("rate limit %s: setting expiry: %w", key, err)
		}
		ttl = l.window
	}

	count := int(incr.Val())
	remaining := l.limit - count
	if remaining < 0 {
		remaining = 0
	}

	if count > l.limit {
		return Decision{Allowed: false, Remaining: 0, RetryAfter: ttl}, nil
	}
	return Decision{Allowed: true, Remaining: remaining}, nil
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, l.key(key)).Err(); err != nil {
		return fmt.Errorf("rate limit reset %s: %w", key, err)
	}
	return nil
}
