/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"time"
)

// Entry is a cached value with its metadata.
type Entry[V any] struct {
	Key            string
	Value          V
	CreatedAt      time.Time
	LastAccessedAt time.Time
	AccessCount    int64
	TTL            time.Duration // 0 means no expiration
	SizeBytes      int

	insertSeq uint64 // order of insertion, breaks ties between policies
	accessSeq uint64 // order of the last access, used for recency
}

// ExpiresAt returns the moment the entry becomes absent. Zero time means the entry never expires.
func (e *Entry[V]) ExpiresAt() time.Time {
	if e.TTL <= 0 {
		return time.Time{}
	}
	return e.CreatedAt.Add(e.TTL)
}

// IsExpired reports whether the entry is logically absent at the moment now (elapsed >= TTL).
func (e *Entry[V]) IsExpired(now time.Time) bool {
	return e.TTL > 0 && !now.Before(e.CreatedAt.Add(e.TTL))
}

// RemainingTTL returns the time left until expiration at the moment now, 0 for entries without TTL.
func (e *Entry[V]) RemainingTTL(now time.Time) time.Duration {
	if e.TTL <= 0 {
		return 0
	}
	if d := e.CreatedAt.Add(e.TTL).Sub(now); d > 0 {
		return d
	}
	return 0
}

// sizeOf returns the size of the values whose size is known without encoding.
func sizeOf(v any) int {
	switch vv := v.(type) {
	case []byte:
		return len(vv)
	case string:
		return len(vv)
	default:
		return 0
	}
}
