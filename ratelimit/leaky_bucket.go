/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/throttled/throttled/v2"
	"github.com/throttled/throttled/v2/store/memstore"
)

const leakyBucketKey = "bucket"

// LeakyBucket implements GCRA (Generic Cell Rate Algorithm). It's a leaky bucket variant algorithm.
// More details and good explanation of this alg is provided here: https://brandur.org/rate-limiting#gcra.
//
// GCRA store reads the wall clock itself, so the moment passed to TryConsume and TimeUntilAvailable is ignored.
type LeakyBucket struct {
	limiter          *throttled.GCRARateLimiterCtx
	capacity         int
	emissionInterval time.Duration
}

var _ Strategy = (*LeakyBucket)(nil)

// NewLeakyBucket creates a new leaky bucket which leaks maxRequests units per window and holds up to capacity units.
func NewLeakyBucket(maxRequests int, window time.Duration, capacity int) (*LeakyBucket, error) {
	gcraStore, err := memstore.NewCtx(1)
	if err != nil {
		return nil, fmt.Errorf("new in-memory store: %w", err)
	}
	reqQuota := throttled.RateQuota{
		MaxRate:  throttled.PerDuration(maxRequests, window),
		MaxBurst: capacity - 1,
	}
	gcraLimiter, err := throttled.NewGCRARateLimiterCtx(gcraStore, reqQuota)
	if err != nil {
		return nil, fmt.Errorf("new GCRA rate limiter: %w", err)
	}
	return &LeakyBucket{
		limiter:          gcraLimiter,
		capacity:         capacity,
		emissionInterval: window / time.Duration(maxRequests),
	}, nil
}

// TryConsume pours cost units into the bucket if they fit. Store errors are treated as admission.
func (lb *LeakyBucket) TryConsume(_ time.Time, cost int) bool {
	limited, _, err := lb.limiter.RateLimitCtx(context.Background(), leakyBucketKey, cost)
	if err != nil {
		return true
	}
	return !limited
}

// TimeUntilAvailable estimates the time until cost units fit into the bucket.
func (lb *LeakyBucket) TimeUntilAvailable(_ time.Time, cost int) time.Duration {
	if cost > lb.capacity {
		return InfDuration
	}
	// Zero quantity doesn't change the theoretical arrival time, so this call only reads the state.
	_, res, err := lb.limiter.RateLimitCtx(context.Background(), leakyBucketKey, 0)
	if err != nil {
		return 0
	}
	// ResetAfter is the time until the bucket is empty, (capacity - cost) units may stay in it.
	wait := res.ResetAfter - time.Duration(lb.capacity-cost)*lb.emissionInterval
	if wait < 0 {
		return 0
	}
	return wait
}
