/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package cache provides a two-tier cache: a bounded in-process MemoryStore with pluggable eviction
// policies (lru, lfu, fifo, ttl) in front of an optional DurableStore (e.g., Redis, see the redisstore package).
//
// TieredCache reads through both tiers promoting durable hits into memory and writes through to both tiers.
// Failures of the durable tier are logged and degrade to a miss or a no-op, they are never returned to callers.
package cache
