/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"time"
)

// ServiceStats contains admission counters of a single service.
// TotalRequests is always equal to AllowedRequests + BlockedRequests.
type ServiceStats struct {
	TotalRequests   int64     `json:"totalRequests"`
	AllowedRequests int64     `json:"allowedRequests"`
	BlockedRequests int64     `json:"blockedRequests"`
	LastBlockedAt   time.Time `json:"lastBlockedAt,omitempty"`
}

// BlockRate returns the share of blocked requests in [0, 1].
func (s ServiceStats) BlockRate() float64 {
	if s.TotalRequests == 0 {
		return 0
	}
	return float64(s.BlockedRequests) / float64(s.TotalRequests)
}

func (s *ServiceStats) record(allowed bool, now time.Time) {
	s.TotalRequests++
	if allowed {
		s.AllowedRequests++
		return
	}
	s.BlockedRequests++
	s.LastBlockedAt = now
}
