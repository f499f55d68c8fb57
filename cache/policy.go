/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Policy is an eviction policy of MemoryStore.
type Policy string

// Eviction policies.
const (
	// PolicyLRU evicts least recently accessed entries first.
	PolicyLRU Policy = "lru"
	// PolicyLFU evicts least frequently accessed entries first.
	PolicyLFU Policy = "lfu"
	// PolicyFIFO evicts the oldest inserted entries first.
	PolicyFIFO Policy = "fifo"
	// PolicyTTL evicts expired entries first (soonest expiration first), then least recently accessed ones.
	PolicyTTL Policy = "ttl"
)

// AvailablePolicies returns names of all supported eviction policies.
func AvailablePolicies() []string {
	return []string{string(PolicyLRU), string(PolicyLFU), string(PolicyFIFO), string(PolicyTTL)}
}

// ParsePolicy parses the policy name (case-insensitive).
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(s))
	switch p {
	case PolicyLRU, PolicyLFU, PolicyFIFO, PolicyTTL:
		return p, nil
	}
	return "", fmt.Errorf("unknown eviction policy %q, should be one of %v", s, AvailablePolicies())
}

// evictionOrder sorts entries so the first ones should be evicted first.
// Ties are broken by insertion order, older entries go first.
func evictionOrder[V any](entries []*Entry[V], policy Policy, now time.Time) {
	var less func(a, b *Entry[V]) bool
	switch policy {
	case PolicyLFU:
		less = func(a, b *Entry[V]) bool {
			if a.AccessCount != b.AccessCount {
				return a.AccessCount < b.AccessCount
			}
			return a.insertSeq < b.insertSeq
		}
	case PolicyFIFO:
		less = func(a, b *Entry[V]) bool {
			return a.insertSeq < b.insertSeq
		}
	case PolicyTTL:
		less = func(a, b *Entry[V]) bool {
			aExpired, bExpired := a.IsExpired(now), b.IsExpired(now)
			if aExpired != bExpired {
				return aExpired
			}
			if aExpired && !a.ExpiresAt().Equal(b.ExpiresAt()) {
				return a.ExpiresAt().Before(b.ExpiresAt())
			}
			if a.accessSeq != b.accessSeq {
				return a.accessSeq < b.accessSeq
			}
			return a.insertSeq < b.insertSeq
		}
	default:
		less = func(a, b *Entry[V]) bool {
			if a.accessSeq != b.accessSeq {
				return a.accessSeq < b.accessSeq
			}
			return a.insertSeq < b.insertSeq
		}
	}
	sort.Slice(entries, func(i, j int) bool { return less(entries[i], entries[j]) })
}
