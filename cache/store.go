/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"context"
	"time"
)

// Store is a key-value cache contract implemented by MemoryStore and TieredCache.
//
// TTL of 0 in Set means the store's default TTL (which may be "no expiration").
// Keys accepts a glob pattern ("*" matches any sequence of characters), an empty pattern matches all keys.
// Expired entries are never returned.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
	Set(ctx context.Context, key string, value V, ttl time.Duration) bool
	Delete(ctx context.Context, key string) bool
	Exists(ctx context.Context, key string) bool
	Clear(ctx context.Context) bool
	Keys(ctx context.Context, pattern string) []string
}
