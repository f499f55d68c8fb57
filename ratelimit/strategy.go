/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"math"
	"time"
)

// InfDuration is returned by TimeUntilAvailable when the requested cost can never be admitted
// (it exceeds the capacity of the strategy).
const InfDuration = time.Duration(math.MaxInt64)

// Strategy is an admission algorithm state.
//
// Implementations are not safe for concurrent use, Registry serializes all calls for a service
// with the service's own lock. Methods must never block.
type Strategy interface {
	// TryConsume atomically checks whether cost units are available at the moment now
	// and consumes them if so.
	TryConsume(now time.Time, cost int) bool

	// TimeUntilAvailable returns 0 if cost units are available at the moment now,
	// otherwise the estimated time until they are. It never mutates the state.
	TimeUntilAvailable(now time.Time, cost int) time.Duration
}

func durationFromSeconds(sec float64) time.Duration {
	d := sec * float64(time.Second)
	if d >= float64(math.MaxInt64) {
		return InfDuration
	}
	return time.Duration(math.Ceil(d))
}
