/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package redisstore provides the Redis-backed durable tier for cache.TieredCache.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/acronis/go-governor/cache"
)

const scanBatchSize = 100

// Store is a cache.DurableStore over Redis. All keys are stored as "<namespace>:<key>",
// so Keys and Clear never touch keys of other applications sharing the database.
type Store struct {
	client    redis.UniversalClient
	namespace string
}

var _ cache.DurableStore = (*Store)(nil)

// NewStore creates a new Store. Empty namespace means cache.DefaultDurableNamespace.
func NewStore(client redis.UniversalClient, namespace string) *Store {
	if namespace == "" {
		namespace = cache.DefaultDurableNamespace
	}
	return &Store{client: client, namespace: namespace}
}

// Namespace returns the prefix of all keys of the store.
func (s *Store) Namespace() string {
	return s.namespace
}

// Get returns the value with its remaining TTL (0 if the key doesn't expire).
// GET and PTTL are sent in one pipeline, so the TTL is read right after the value.
func (s *Store) Get(ctx context.Context, key string) ([]byte, time.Duration, error) {
	var getCmd *redis.StringCmd
	var ttlCmd *redis.DurationCmd
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, s.key(key))
		ttlCmd = pipe.PTTL(ctx, s.key(key))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("get %q: %w", key, err)
	}
	value, err := getCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, 0, cache.ErrNotFound
		}
		return nil, 0, fmt.Errorf("get %q: %w", key, err)
	}
	ttl := ttlCmd.Val()
	if ttl < 0 { // -1 is no expiration, -2 is no key
		ttl = 0
	}
	return value, ttl, nil
}

// Set stores the value. Zero TTL means no expiration.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		return fmt.Errorf("set %q: negative ttl %s", key, ttl)
	}
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes the key and reports whether it existed.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("delete %q: %w", key, err)
	}
	return n > 0, nil
}

// Expire sets a new TTL for the key and reports whether the key exists. Zero TTL removes the expiration.
func (s *Store) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl < 0 {
		return false, fmt.Errorf("expire %q: negative ttl %s", key, ttl)
	}
	if ttl > 0 {
		ok, err := s.client.PExpire(ctx, s.key(key), ttl).Result()
		if err != nil {
			return false, fmt.Errorf("expire %q: %w", key, err)
		}
		return ok, nil
	}
	if err := s.client.Persist(ctx, s.key(key)).Err(); err != nil {
		return false, fmt.Errorf("persist %q: %w", key, err)
	}
	return s.Exists(ctx, key)
}

// Exists reports whether the key exists.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("exists %q: %w", key, err)
	}
	return n > 0, nil
}

// Keys returns sorted keys (without the namespace) matching the pattern. Empty pattern matches all keys.
// Only "*" is a wildcard, like in MemoryStore.Keys; other Redis pattern characters ("?", "[", "]", "\\")
// are matched literally.
func (s *Store) Keys(ctx context.Context, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = "*"
	}
	found, err := s.scan(ctx, s.match(pattern))
	if err != nil {
		return nil, fmt.Errorf("keys %q: %w", pattern, err)
	}
	keys := make([]string, 0, len(found))
	for _, k := range found {
		keys = append(keys, strings.TrimPrefix(k, s.namespace+":"))
	}
	sort.Strings(keys)
	return keys, nil
}

// Clear removes all keys of the namespace.
// Keys are collected by a complete SCAN before any of them is deleted:
// deleting during the iteration makes the cursor skip keys.
func (s *Store) Clear(ctx context.Context) error {
	keys, err := s.scan(ctx, s.match("*"))
	if err != nil {
		return fmt.Errorf("clear namespace %q: %w", s.namespace, err)
	}
	for start := 0; start < len(keys); start += scanBatchSize {
		end := start + scanBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		if err = s.client.Del(ctx, keys[start:end]...).Err(); err != nil {
			return fmt.Errorf("clear namespace %q: %w", s.namespace, err)
		}
	}
	return nil
}

// scan returns unique keys matching the Redis pattern.
func (s *Store) scan(ctx context.Context, match string) ([]string, error) {
	var cursor uint64
	var result []string
	seen := make(map[string]struct{})
	for {
		keys, next, err := s.client.Scan(ctx, cursor, match, scanBatchSize).Result()
		if err != nil {
			return nil, err
		}
		// SCAN may return a key more than once.
		for _, k := range keys {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				result = append(result, k)
			}
		}
		if next == 0 {
			return result, nil
		}
		cursor = next
	}
}

func (s *Store) key(key string) string {
	return s.namespace + ":" + key
}

// match returns the SCAN pattern for keys of the namespace matching the pattern.
func (s *Store) match(pattern string) string {
	return escapePattern(s.namespace) + ":" + escapePattern(pattern)
}

// escapePattern escapes Redis pattern characters except "*".
func escapePattern(pattern string) string {
	if !strings.ContainsAny(pattern, `?[]\`) {
		return pattern
	}
	var b strings.Builder
	b.Grow(len(pattern) + 4)
	for _, r := range pattern {
		switch r {
		case '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
