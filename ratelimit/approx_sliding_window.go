/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"fmt"
	"time"

	"github.com/RussellLuo/slidingwindow"
)

// ApproxSlidingWindow implements approximate sliding window algorithm.
// It keeps counters of the current and the previous fixed windows and weights the previous one
// by its overlap with the sliding window. It uses constant memory but may slightly over- or under-admit.
type ApproxSlidingWindow struct {
	limiter      *slidingwindow.Limiter
	maxRequests  int
	window       time.Duration
	rejectedAt   time.Time
	hasRejection bool
}

var _ Strategy = (*ApproxSlidingWindow)(nil)

// NewApproxSlidingWindow creates a new approximate sliding window.
func NewApproxSlidingWindow(maxRequests int, window time.Duration) (*ApproxSlidingWindow, error) {
	lim, err := slidingwindow.NewLimiter(window, int64(maxRequests), func() (slidingwindow.Window, slidingwindow.StopFunc) {
		return slidingwindow.NewLocalWindow()
	})
	if err != nil {
		return nil, fmt.Errorf("new sliding window limiter: %w", err)
	}
	return &ApproxSlidingWindow{limiter: lim, maxRequests: maxRequests, window: window}, nil
}

// TryConsume admits cost units if the weighted count stays within MaxRequests.
func (w *ApproxSlidingWindow) TryConsume(now time.Time, cost int) bool {
	if w.limiter.AllowN(now, int64(cost)) {
		return true
	}
	w.rejectedAt, w.hasRejection = now, true
	return false
}

// TimeUntilAvailable returns the time until the current fixed window ends
// if a request was rejected in it, otherwise 0.
func (w *ApproxSlidingWindow) TimeUntilAvailable(now time.Time, cost int) time.Duration {
	if cost > w.maxRequests {
		return InfDuration
	}
	windowStart := now.Truncate(w.window)
	if !w.hasRejection || w.rejectedAt.Before(windowStart) {
		return 0
	}
	return windowStart.Add(w.window).Sub(now)
}
