/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by DurableStore.Get when the key is absent.
var ErrNotFound = errors.New("cache: key not found")

// DurableStore is an optional external key-value tier behind MemoryStore.
// Implementations are expected to namespace their keys, so Clear and Keys affect only the cache's own keys.
type DurableStore interface {
	// Get returns the value and its remaining TTL (0 if the key doesn't expire).
	// ErrNotFound is returned if the key is absent.
	Get(ctx context.Context, key string) (value []byte, ttl time.Duration, err error)

	// Set stores the value. Zero TTL means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes the key and reports whether it existed.
	Delete(ctx context.Context, key string) (bool, error)

	// Expire sets a new TTL for the key and reports whether the key exists.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Exists reports whether the key exists.
	Exists(ctx context.Context, key string) (bool, error)

	// Keys returns keys matching the glob pattern.
	Keys(ctx context.Context, pattern string) ([]string, error)

	// Clear removes all keys of the store.
	Clear(ctx context.Context) error
}

// NoopDurableStore is a DurableStore that stores nothing. It represents an absent durable tier.
type NoopDurableStore struct{}

var _ DurableStore = NoopDurableStore{}

// Get always returns ErrNotFound.
func (NoopDurableStore) Get(context.Context, string) ([]byte, time.Duration, error) {
	return nil, 0, ErrNotFound
}

// Set does nothing.
func (NoopDurableStore) Set(context.Context, string, []byte, time.Duration) error { return nil }

// Delete does nothing.
func (NoopDurableStore) Delete(context.Context, string) (bool, error) { return false, nil }

// Expire does nothing.
func (NoopDurableStore) Expire(context.Context, string, time.Duration) (bool, error) { return false, nil }

// Exists always returns false.
func (NoopDurableStore) Exists(context.Context, string) (bool, error) { return false, nil }

// Keys always returns nil.
func (NoopDurableStore) Keys(context.Context, string) ([]string, error) { return nil, nil }

// Clear does nothing.
func (NoopDurableStore) Clear(context.Context) error { return nil }

func isNoopDurableStore(ds DurableStore) bool {
	switch ds.(type) {
	case nil, NoopDurableStore, *NoopDurableStore:
		return true
	}
	return false
}
