/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"time"
)

// SlidingWindow implements exact sliding window log algorithm.
// It remembers the timestamp of every admitted unit within the last window,
// so in any interval of Window length no more than MaxRequests units are admitted.
type SlidingWindow struct {
	maxRequests int
	window      time.Duration
	timestamps  []time.Time // sorted in ascending order
}

var _ Strategy = (*SlidingWindow)(nil)

// NewSlidingWindow creates a new sliding window log.
func NewSlidingWindow(maxRequests int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{maxRequests: maxRequests, window: window}
}

// TryConsume records cost timestamps if the log has room for them in the window ending at now.
func (sw *SlidingWindow) TryConsume(now time.Time, cost int) bool {
	sw.evict(now)
	if len(sw.timestamps)+cost > sw.maxRequests {
		return false
	}
	for i := 0; i < cost; i++ {
		sw.timestamps = append(sw.timestamps, now)
	}
	return true
}

// TimeUntilAvailable returns the time until enough of the oldest timestamps leave the window.
func (sw *SlidingWindow) TimeUntilAvailable(now time.Time, cost int) time.Duration {
	if cost > sw.maxRequests {
		return InfDuration
	}
	start := sw.firstInWindow(now)
	count := len(sw.timestamps) - start
	if count+cost <= sw.maxRequests {
		return 0
	}
	// The timestamp that must expire to make room for cost units.
	oldest := sw.timestamps[start+count+cost-sw.maxRequests-1]
	if wait := oldest.Add(sw.window).Sub(now); wait > 0 {
		return wait
	}
	return 0
}

// Len returns the number of units admitted within the window ending at now.
func (sw *SlidingWindow) Len(now time.Time) int {
	return len(sw.timestamps) - sw.firstInWindow(now)
}

func (sw *SlidingWindow) evict(now time.Time) {
	if start := sw.firstInWindow(now); start > 0 {
		sw.timestamps = append(sw.timestamps[:0], sw.timestamps[start:]...)
	}
}

// firstInWindow returns the index of the first timestamp inside (now-window, now].
func (sw *SlidingWindow) firstInWindow(now time.Time) int {
	boundary := now.Add(-sw.window)
	i := 0
	for i < len(sw.timestamps) && !sw.timestamps[i].After(boundary) {
		i++
	}
	return i
}
