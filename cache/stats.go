/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"go.uber.org/atomic"
)

// Stats contains counters of TieredCache.
// Hits is always equal to MemoryHits + RedisHits.
type Stats struct {
	Hits          int64 `json:"hits"`
	Misses        int64 `json:"misses"`
	Sets          int64 `json:"sets"`
	Deletes       int64 `json:"deletes"`
	MemoryHits    int64 `json:"memory_hits"`
	RedisHits     int64 `json:"redis_hits"`
	Promotions    int64 `json:"promotions"`
	Evictions     int64 `json:"evictions"`
	DurableErrors int64 `json:"durable_errors"`
}

// HitRate returns the share of hits among all reads in [0, 1].
func (s Stats) HitRate() float64 {
	if total := s.Hits + s.Misses; total > 0 {
		return float64(s.Hits) / float64(total)
	}
	return 0
}

type tieredStats struct {
	misses        atomic.Int64
	sets          atomic.Int64
	deletes       atomic.Int64
	memoryHits    atomic.Int64
	redisHits     atomic.Int64
	promotions    atomic.Int64
	durableErrors atomic.Int64
}

func (s *tieredStats) snapshot() Stats {
	memoryHits, redisHits := s.memoryHits.Load(), s.redisHits.Load()
	return Stats{
		Hits:          memoryHits + redisHits,
		Misses:        s.misses.Load(),
		Sets:          s.sets.Load(),
		Deletes:       s.deletes.Load(),
		MemoryHits:    memoryHits,
		RedisHits:     redisHits,
		Promotions:    s.promotions.Load(),
		DurableErrors: s.durableErrors.Load(),
	}
}

func (s *tieredStats) reset() {
	s.misses.Store(0)
	s.sets.Store(0)
	s.deletes.Store(0)
	s.memoryHits.Store(0)
	s.redisHits.Store(0)
	s.promotions.Store(0)
	s.durableErrors.Store(0)
}
