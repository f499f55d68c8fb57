/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"time"
)

// FixedWindow implements fixed window counter algorithm.
// Time is split into consecutive windows aligned to the Unix epoch, each window admits up to MaxRequests units.
// Up to 2*MaxRequests units may be admitted around a window boundary.
type FixedWindow struct {
	maxRequests int
	window      time.Duration
	windowIndex int64
	count       int
}

var _ Strategy = (*FixedWindow)(nil)

// NewFixedWindow creates a new fixed window counter.
func NewFixedWindow(maxRequests int, window time.Duration) *FixedWindow {
	return &FixedWindow{maxRequests: maxRequests, window: window, windowIndex: -1}
}

// TryConsume adds cost to the counter of the window containing now if it does not exceed MaxRequests.
func (fw *FixedWindow) TryConsume(now time.Time, cost int) bool {
	if idx := fw.indexOf(now); idx != fw.windowIndex {
		fw.windowIndex = idx
		fw.count = 0
	}
	if fw.count+cost > fw.maxRequests {
		return false
	}
	fw.count += cost
	return true
}

// TimeUntilAvailable returns 0 if the current window has room for cost units,
// otherwise the time until the next window starts.
func (fw *FixedWindow) TimeUntilAvailable(now time.Time, cost int) time.Duration {
	if cost > fw.maxRequests {
		return InfDuration
	}
	idx := fw.indexOf(now)
	if idx != fw.windowIndex || fw.count+cost <= fw.maxRequests {
		return 0
	}
	return time.Unix(0, (idx+1)*int64(fw.window)).Sub(now)
}

// Count returns the number of units admitted in the window containing now.
func (fw *FixedWindow) Count(now time.Time) int {
	if fw.indexOf(now) != fw.windowIndex {
		return 0
	}
	return fw.count
}

func (fw *FixedWindow) indexOf(now time.Time) int64 {
	return now.UnixNano() / int64(fw.window)
}
