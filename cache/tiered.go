/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/acronis/go-governor/log"
)

// DefaultDurableTimeout is the default timeout of a single durable tier operation.
const DefaultDurableTimeout = 100 * time.Millisecond

// Durable tier operations used in logs and metrics.
const (
	opGet    = "get"
	opSet    = "set"
	opDelete = "delete"
	opExists = "exists"
	opKeys   = "keys"
	opClear  = "clear"
	opDecode = "decode"
	opEncode = "encode"
)

// TieredCacheOpts represents options for TieredCache.
type TieredCacheOpts struct {
	// Codec serializes values for the durable tier. JSONCodec is used if nil.
	Codec Codec

	// DurableTimeout limits every durable tier operation. DefaultDurableTimeout is used if zero.
	DurableTimeout time.Duration

	// Logger is used for logging durable tier failures. Logging is disabled if nil.
	Logger log.FieldLogger

	// MetricsCollector collects hits, misses and durable tier errors. Metrics are disabled if nil.
	MetricsCollector MetricsCollector
}

// TieredCache is a read-through, write-through cache over MemoryStore and an optional DurableStore.
//
// A durable hit is promoted into memory (with the remaining TTL reported by the durable tier)
// before it's returned, so the next read of the key is served from memory.
// Failures of the durable tier are logged, counted in Stats.DurableErrors and treated as a miss or a no-op.
type TieredCache[V any] struct {
	memory         *MemoryStore[V]
	durable        DurableStore
	codec          Codec
	durableTimeout time.Duration
	logger         log.FieldLogger
	metrics        MetricsCollector
	stats          *tieredStats
	memoryOnly     bool
}

var _ Store[string] = (*TieredCache[string])(nil)

// NewTieredCache creates a new TieredCache. Nil durable means there is no durable tier.
func NewTieredCache[V any](memory *MemoryStore[V], durable DurableStore) *TieredCache[V] {
	return NewTieredCacheWithOpts(memory, durable, TieredCacheOpts{})
}

// NewTieredCacheWithOpts creates a new TieredCache with the provided options.
func NewTieredCacheWithOpts[V any](memory *MemoryStore[V], durable DurableStore, opts TieredCacheOpts) *TieredCache[V] {
	if durable == nil {
		durable = NoopDurableStore{}
	}
	if opts.Codec == nil {
		opts.Codec = JSONCodec{}
	}
	if opts.DurableTimeout <= 0 {
		opts.DurableTimeout = DefaultDurableTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	return &TieredCache[V]{
		memory:         memory,
		durable:        durable,
		codec:          opts.Codec,
		durableTimeout: opts.DurableTimeout,
		logger:         opts.Logger,
		metrics:        opts.MetricsCollector,
		stats:          &tieredStats{},
	}
}

// WithMemoryOnly returns a view of the cache whose operations don't touch the durable tier.
// The view shares tiers and statistics with the original cache.
func (c *TieredCache[V]) WithMemoryOnly() *TieredCache[V] {
	view := *c
	view.memoryOnly = true
	return &view
}

// Memory returns the memory tier.
func (c *TieredCache[V]) Memory() *MemoryStore[V] {
	return c.memory
}

// HasDurable reports whether the cache has a durable tier.
func (c *TieredCache[V]) HasDurable() bool {
	return !isNoopDurableStore(c.durable)
}

// Get returns the value from memory, or from the durable tier promoting it into memory.
// A durable value is not promoted if the key was set, deleted or cleared while it was being read,
// so a stale value never overwrites a newer write.
func (c *TieredCache[V]) Get(ctx context.Context, key string) (value V, ok bool) {
	value, ok, gen := c.memory.getOrFence(key)
	if ok {
		c.stats.memoryHits.Inc()
		c.metrics.IncHits(TierMemory)
		return value, true
	}
	if value, ok = c.getDurable(ctx, key, gen); ok {
		c.stats.redisHits.Inc()
		c.metrics.IncHits(TierDurable)
		return value, true
	}
	c.stats.misses.Inc()
	c.metrics.IncMisses()
	return value, false
}

func (c *TieredCache[V]) getDurable(ctx context.Context, key string, gen uint64) (value V, ok bool) {
	if !c.useDurable() {
		c.memory.releaseFence(key)
		return value, false
	}
	dctx, cancel := context.WithTimeout(ctx, c.durableTimeout)
	data, ttl, err := c.durable.Get(dctx, key)
	cancel()
	if err == nil {
		if err = c.codec.Unmarshal(data, &value); err != nil {
			c.durableFailed(opDecode, key, err)
		}
	} else if !errors.Is(err, ErrNotFound) {
		c.durableFailed(opGet, key, err)
	}
	if err != nil {
		c.memory.releaseFence(key)
		var zero V
		return zero, false
	}
	if c.memory.setFenced(key, gen, value, ttl) {
		c.stats.promotions.Inc()
	}
	return value, true
}

// Set stores the value in memory and in the durable tier. Zero TTL means the memory tier's default TTL.
// It returns true if the value was stored in at least one tier.
func (c *TieredCache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) bool {
	if ttl < 0 {
		return false
	}
	c.stats.sets.Inc()
	if ttl == 0 {
		ttl = c.memory.defaultTTL
	}
	stored := c.memory.Set(ctx, key, value, ttl)
	if !c.useDurable() {
		return stored
	}

	data, err := c.codec.Marshal(value)
	if err != nil {
		c.durableFailed(opEncode, key, err)
		return stored
	}
	dctx, cancel := context.WithTimeout(ctx, c.durableTimeout)
	defer cancel()
	if err = c.durable.Set(dctx, key, data, ttl); err != nil {
		c.durableFailed(opSet, key, err)
		return stored
	}
	return true
}

// Delete removes the key from both tiers. It returns true if the key existed in any tier.
func (c *TieredCache[V]) Delete(ctx context.Context, key string) bool {
	c.stats.deletes.Inc()
	deleted := c.memory.Delete(ctx, key)
	if !c.useDurable() {
		return deleted
	}
	dctx, cancel := context.WithTimeout(ctx, c.durableTimeout)
	defer cancel()
	durableDeleted, err := c.durable.Delete(dctx, key)
	if err != nil {
		c.durableFailed(opDelete, key, err)
	}
	return deleted || durableDeleted
}

// Exists reports whether the key exists in any tier.
func (c *TieredCache[V]) Exists(ctx context.Context, key string) bool {
	if c.memory.Exists(ctx, key) {
		return true
	}
	if !c.useDurable() {
		return false
	}
	dctx, cancel := context.WithTimeout(ctx, c.durableTimeout)
	defer cancel()
	exists, err := c.durable.Exists(dctx, key)
	if err != nil {
		c.durableFailed(opExists, key, err)
		return false
	}
	return exists
}

// Clear removes all entries from both tiers. It returns false if the durable tier failed to clear.
func (c *TieredCache[V]) Clear(ctx context.Context) bool {
	c.memory.Clear(ctx)
	if !c.useDurable() {
		return true
	}
	dctx, cancel := context.WithTimeout(ctx, c.durableTimeout)
	defer cancel()
	if err := c.durable.Clear(dctx); err != nil {
		c.durableFailed(opClear, "", err)
		return false
	}
	return true
}

// Keys returns sorted unique keys of both tiers matching the glob pattern.
func (c *TieredCache[V]) Keys(ctx context.Context, pattern string) []string {
	keys := c.memory.Keys(ctx, pattern)
	if !c.useDurable() {
		return keys
	}
	dctx, cancel := context.WithTimeout(ctx, c.durableTimeout)
	defer cancel()
	durableKeys, err := c.durable.Keys(dctx, pattern)
	if err != nil {
		c.durableFailed(opKeys, pattern, err)
		return keys
	}
	seen := make(map[string]struct{}, len(keys)+len(durableKeys))
	for _, key := range keys {
		seen[key] = struct{}{}
	}
	for _, key := range durableKeys {
		if _, ok := seen[key]; !ok {
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Stats returns a snapshot of the cache statistics.
func (c *TieredCache[V]) Stats() Stats {
	s := c.stats.snapshot()
	s.Evictions = c.memory.Stats().Evictions
	return s
}

// ResetStats zeroes the cache statistics (memory tier counters are not affected).
func (c *TieredCache[V]) ResetStats() {
	c.stats.reset()
}

func (c *TieredCache[V]) useDurable() bool {
	return !c.memoryOnly && c.HasDurable()
}

func (c *TieredCache[V]) durableFailed(op, key string, err error) {
	c.stats.durableErrors.Inc()
	c.metrics.IncDurableErrors(op)
	c.logger.Warn(fmt.Sprintf("durable cache tier %s failed", op),
		log.String("operation", op), log.String("key", key), log.Error(err))
}
