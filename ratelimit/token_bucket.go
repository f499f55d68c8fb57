/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket implements token bucket algorithm.
// The bucket starts full, it's refilled lazily (on each check) at maxRequests/window tokens per second
// and never holds more than capacity tokens.
type TokenBucket struct {
	limiter  *rate.Limiter
	rate     float64 // tokens per second
	capacity int
}

var _ Strategy = (*TokenBucket)(nil)

// NewTokenBucket creates a new token bucket that is refilled with maxRequests tokens per window.
func NewTokenBucket(maxRequests int, window time.Duration, capacity int) *TokenBucket {
	r := float64(maxRequests) / window.Seconds()
	return &TokenBucket{
		limiter:  rate.NewLimiter(rate.Limit(r), capacity),
		rate:     r,
		capacity: capacity,
	}
}

// TryConsume consumes cost tokens if the bucket holds at least cost tokens at the moment now.
func (tb *TokenBucket) TryConsume(now time.Time, cost int) bool {
	return tb.limiter.AllowN(now, cost)
}

// TimeUntilAvailable returns max(0, (cost - tokens) / rate).
func (tb *TokenBucket) TimeUntilAvailable(now time.Time, cost int) time.Duration {
	if cost > tb.capacity {
		return InfDuration
	}
	tokens := tb.Tokens(now)
	if tokens >= float64(cost) {
		return 0
	}
	return durationFromSeconds((float64(cost) - tokens) / tb.rate)
}

// Tokens returns the number of tokens available at the moment now. The result is always in [0, capacity].
func (tb *TokenBucket) Tokens(now time.Time) float64 {
	tokens := tb.limiter.TokensAt(now)
	if tokens < 0 {
		return 0
	}
	return tokens
}

// Capacity returns the maximum number of tokens in the bucket.
func (tb *TokenBucket) Capacity() int {
	return tb.capacity
}
