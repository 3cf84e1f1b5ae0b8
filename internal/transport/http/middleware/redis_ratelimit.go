package middleware

import (
	"context"
	"time"
)

// Counter is a fixed-window counter shared between instances.
type Counter interface {
	IncrWithExpire(ctx context.Context, namespace, key string, window time.Duration) (int64, error)
}

// SharedRateLimiter allows max requests per key per window, counted in a
// store every instance sees.
type SharedRateLimiter struct {
	counter   Counter
	namespace string
	max       int64
	window    time.Duration
}

func NewSharedRateLimiter(counter Counter, namespace string, max int, window time.Duration) *SharedRateLimiter {
	return &SharedRateLimiter{counter: counter, namespace: namespace, max: int64(max), window: window}
}

func (l *SharedRateLimiter) Allow(ctx context.Context, key string) (bool, error) {
	n, err := l.counter.IncrWithExpire(ctx, l.namespace, key, l.window)
	if err != nil {
		return false, err
	}
	return n <= l.max, nil
}
