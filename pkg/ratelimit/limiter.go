package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outbound calls to an external API. Broker and market-data
// endpoints enforce hard per-second request quotas.
type Limiter struct {
	limiter *rate.Limiter
}

// NewPerSecond allows n requests per second with a burst of n.
func NewPerSecond(n int) *Limiter {
	if n <= 0 {
		n = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(n), n)}
}

// NewPerMinute allows n requests per minute with a burst of 1.
func NewPerMinute(n int) *Limiter {
	if n <= 0 {
		n = 1
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(n)), 1)}
}

// Wait blocks until the next request is permitted or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may proceed immediately.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
