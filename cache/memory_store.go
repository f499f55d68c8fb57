/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/vasayxtx/go-glob"

	"github.com/acronis/go-governor/log"
)

// MemoryStoreOpts represents options for MemoryStore.
type MemoryStoreOpts[V any] struct {
	// DefaultTTL is used when Set is called with zero TTL. Zero means no expiration.
	DefaultTTL time.Duration

	// MaxEntrySize limits the size of a single entry in bytes, Set of a bigger value is rejected.
	// Zero means no limit.
	MaxEntrySize int

	// SizeFunc returns the size of the value in bytes.
	// By default, the size is known only for []byte and string values and is 0 for others.
	SizeFunc func(value V) int

	// SweepInterval is the interval of the background removal of expired entries started by Start.
	// DefaultSweepInterval is used if zero.
	SweepInterval time.Duration

	// Clock returns the current time. time.Now is used if nil.
	Clock func() time.Time

	// Logger is used for logging evictions and sweeps. Logging is disabled if nil.
	Logger log.FieldLogger

	// MetricsCollector collects entries amount and evictions. Metrics are disabled if nil.
	MetricsCollector MetricsCollector
}

// MemoryStats contains counters of MemoryStore.
type MemoryStats struct {
	Entries     int   `json:"entries"`
	Capacity    int   `json:"capacity"`
	SizeBytes   int64 `json:"sizeBytes"`
	Evictions   int64 `json:"evictions"`
	Expirations int64 `json:"expirations"`
}

// MemoryStore is a bounded in-process cache with a pluggable eviction policy.
// All methods are safe for concurrent use.
//
// Expired entries are absent for readers immediately,
// they are physically removed on access, by eviction or by the background sweep (see Start).
type MemoryStore[V any] struct {
	policy       Policy
	defaultTTL   time.Duration
	maxEntrySize int
	sizeFunc     func(V) int
	clock        func() time.Time
	logger       log.FieldLogger
	metrics      MetricsCollector

	mu          sync.Mutex
	capacity    int
	entries     map[string]*Entry[V]
	seq         uint64
	sizeBytes   int64
	evictions   int64
	expirations int64

	// fences track writes to keys that are being read from the durable tier (see getOrFence).
	fences map[string]*writeFence

	sweeper *sweeper
}

var _ Store[string] = (*MemoryStore[string])(nil)

// NewMemoryStore creates a new MemoryStore with the provided capacity and eviction policy.
func NewMemoryStore[V any](capacity int, policy Policy) (*MemoryStore[V], error) {
	return NewMemoryStoreWithOpts[V](capacity, policy, MemoryStoreOpts[V]{})
}

// NewMemoryStoreWithOpts creates a new MemoryStore with the provided capacity, eviction policy and options.
func NewMemoryStoreWithOpts[V any](capacity int, policy Policy, opts MemoryStoreOpts[V]) (*MemoryStore[V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be greater than 0")
	}
	if policy == "" {
		policy = PolicyLRU
	}
	if _, err := ParsePolicy(string(policy)); err != nil {
		return nil, err
	}
	if opts.DefaultTTL < 0 {
		return nil, fmt.Errorf("defaultTTL must be greater or equal to 0 (no expiration)")
	}
	if opts.MaxEntrySize < 0 {
		return nil, fmt.Errorf("maxEntrySize must be greater or equal to 0 (no limit)")
	}
	if opts.SweepInterval < 0 {
		return nil, fmt.Errorf("sweepInterval must be greater or equal to 0")
	}
	if opts.SweepInterval == 0 {
		opts.SweepInterval = DefaultSweepInterval
	}
	if opts.SizeFunc == nil {
		opts.SizeFunc = func(v V) int { return sizeOf(v) }
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	s := &MemoryStore[V]{
		policy:       policy,
		defaultTTL:   opts.DefaultTTL,
		maxEntrySize: opts.MaxEntrySize,
		sizeFunc:     opts.SizeFunc,
		clock:        opts.Clock,
		logger:       opts.Logger,
		metrics:      opts.MetricsCollector,
		capacity:     capacity,
		entries:      make(map[string]*Entry[V], capacity),
		fences:       make(map[string]*writeFence),
	}
	s.sweeper = newSweeper(s.Sweep, opts.SweepInterval, opts.Logger)
	return s, nil
}

// Get returns the value by the key. Access metadata of the entry is updated, its TTL is not.
func (s *MemoryStore[V]) Get(_ context.Context, key string) (value V, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.getAlive(key, s.clock())
	if entry == nil {
		return value, false
	}
	s.touch(entry)
	return entry.Value, true
}

// Set stores the value. Zero TTL means the default TTL, negative TTL is rejected.
// If the key is new and the store is full, max(1, capacity/4) entries are evicted according to the policy.
// Overwriting an existing key creates a new entry (CreatedAt, TTL and access metadata are reset).
// It returns false if the value was not stored (negative TTL or too big value).
func (s *MemoryStore[V]) Set(_ context.Context, key string, value V, ttl time.Duration) bool {
	ttl, size, ok := s.prepareSet(key, value, ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.bumpFence(key)
	if !ok {
		return false
	}
	s.setLocked(key, value, ttl, size)
	return true
}

// prepareSet resolves the TTL and the size of the value and reports whether the value may be stored.
func (s *MemoryStore[V]) prepareSet(key string, value V, ttl time.Duration) (time.Duration, int, bool) {
	if ttl < 0 {
		return 0, 0, false
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	size := s.sizeFunc(value)
	if s.maxEntrySize > 0 && size > s.maxEntrySize {
		s.logger.Debug("cache entry is too big, skipped",
			log.String("key", key), log.Int("size", size), log.Int("max_size", s.maxEntrySize))
		return 0, 0, false
	}
	return ttl, size, true
}

// setLocked stores the entry. Must be called with the lock held.
func (s *MemoryStore[V]) setLocked(key string, value V, ttl time.Duration, size int) {
	now := s.clock()
	if old, exists := s.entries[key]; exists {
		s.removeEntry(old)
	} else if len(s.entries) >= s.capacity {
		s.evict(now, evictionBatch(s.capacity))
	}

	s.seq++
	s.entries[key] = &Entry[V]{
		Key:            key,
		Value:          value,
		CreatedAt:      now,
		LastAccessedAt: now,
		TTL:            ttl,
		SizeBytes:      size,
		insertSeq:      s.seq,
		accessSeq:      s.seq,
	}
	s.sizeBytes += int64(size)
	s.metrics.SetAmount(len(s.entries))
}

// Delete removes the entry. It returns true if a live entry existed.
func (s *MemoryStore[V]) Delete(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.bumpFence(key)
	entry, ok := s.entries[key]
	if !ok {
		return false
	}
	s.removeEntry(entry)
	s.metrics.SetAmount(len(s.entries))
	return !entry.IsExpired(s.clock())
}

// Exists reports whether a live entry exists. Access metadata is not updated.
func (s *MemoryStore[V]) Exists(_ context.Context, key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getAlive(key, s.clock()) != nil
}

// Clear removes all entries. Removed entries are not counted as evictions.
func (s *MemoryStore[V]) Clear(_ context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.fences {
		f.gen++
	}
	s.entries = make(map[string]*Entry[V], s.capacity)
	s.sizeBytes = 0
	s.metrics.SetAmount(0)
	return true
}

// Keys returns sorted keys of live entries matching the glob pattern. Empty pattern matches all keys.
func (s *MemoryStore[V]) Keys(_ context.Context, pattern string) []string {
	match := func(string) bool { return true }
	if pattern != "" && pattern != "*" {
		match = glob.Compile(pattern)
	}

	s.mu.Lock()
	now := s.clock()
	keys := make([]string, 0, len(s.entries))
	for key, entry := range s.entries {
		if !entry.IsExpired(now) && match(key) {
			keys = append(keys, key)
		}
	}
	s.mu.Unlock()

	sort.Strings(keys)
	return keys
}

// Snapshot returns a copy of the live entry with its metadata without updating access metadata.
func (s *MemoryStore[V]) Snapshot(key string) (Entry[V], bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok || entry.IsExpired(s.clock()) {
		return Entry[V]{}, false
	}
	return *entry, true
}

// RemainingTTL returns the time left until the live entry expires (0 for entries without TTL).
func (s *MemoryStore[V]) RemainingTTL(key string) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	entry := s.getAlive(key, now)
	if entry == nil {
		return 0, false
	}
	return entry.RemainingTTL(now), true
}

// Len returns the number of stored entries including expired ones not yet removed.
func (s *MemoryStore[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Stats returns a snapshot of the store's counters.
func (s *MemoryStore[V]) Stats() MemoryStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MemoryStats{
		Entries:     len(s.entries),
		Capacity:    s.capacity,
		SizeBytes:   s.sizeBytes,
		Evictions:   s.evictions,
		Expirations: s.expirations,
	}
}

// Policy returns the eviction policy of the store.
func (s *MemoryStore[V]) Policy() Policy {
	return s.policy
}

// Resize changes the capacity and returns the number of evicted entries.
// Entries are evicted according to the policy when the store shrinks. Non-positive capacity is ignored.
func (s *MemoryStore[V]) Resize(capacity int) (evicted int) {
	if capacity <= 0 {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.capacity = capacity
	if excess := len(s.entries) - capacity; excess > 0 {
		evicted = s.evict(s.clock(), excess)
	}
	return evicted
}

// Sweep removes all expired entries and returns their number.
func (s *MemoryStore[V]) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	removed := 0
	for _, entry := range s.entries {
		if entry.IsExpired(now) {
			s.removeEntry(entry)
			removed++
		}
	}
	if removed > 0 {
		s.expirations += int64(removed)
		s.metrics.SetAmount(len(s.entries))
	}
	return removed
}

// writeFence counts writes to a key while durable reads of it are in flight.
type writeFence struct {
	gen  uint64
	refs int
}

// getOrFence returns the live value like Get. On a miss it starts tracking writes to the key
// and returns the current write generation, which must be passed to setFenced or releaseFence.
func (s *MemoryStore[V]) getOrFence(key string) (value V, ok bool, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry := s.getAlive(key, s.clock()); entry != nil {
		s.touch(entry)
		return entry.Value, true, 0
	}
	f, exists := s.fences[key]
	if !exists {
		f = &writeFence{}
		s.fences[key] = f
	}
	f.refs++
	return value, false, f.gen
}

// setFenced stores the value only if the key was not written (set, deleted or cleared)
// since getOrFence returned gen. The fence is released in any case.
func (s *MemoryStore[V]) setFenced(key string, gen uint64, value V, ttl time.Duration) bool {
	ttl, size, ok := s.prepareSet(key, value, ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.releaseFenceLocked(key) != gen || !ok {
		return false
	}
	s.setLocked(key, value, ttl, size)
	return true
}

// releaseFence stops tracking writes for a durable read that ended without promotion.
func (s *MemoryStore[V]) releaseFence(key string) {
	s.mu.Lock()
	s.releaseFenceLocked(key)
	s.mu.Unlock()
}

func (s *MemoryStore[V]) releaseFenceLocked(key string) (gen uint64) {
	f, ok := s.fences[key]
	if !ok {
		return 0
	}
	f.refs--
	if f.refs <= 0 {
		delete(s.fences, key)
	}
	return f.gen
}

func (s *MemoryStore[V]) bumpFence(key string) {
	if f, ok := s.fences[key]; ok {
		f.gen++
	}
}

// getAlive returns the entry if it exists and is not expired. An expired entry is removed.
func (s *MemoryStore[V]) getAlive(key string, now time.Time) *Entry[V] {
	entry, ok := s.entries[key]
	if !ok {
		return nil
	}
	if entry.IsExpired(now) {
		s.removeEntry(entry)
		s.expirations++
		s.metrics.SetAmount(len(s.entries))
		return nil
	}
	return entry
}

func (s *MemoryStore[V]) touch(entry *Entry[V]) {
	s.seq++
	entry.accessSeq = s.seq
	entry.LastAccessedAt = s.clock()
	entry.AccessCount++
}

func (s *MemoryStore[V]) removeEntry(entry *Entry[V]) {
	delete(s.entries, entry.Key)
	s.sizeBytes -= int64(entry.SizeBytes)
}

// evict removes up to n entries according to the policy. Must be called with the lock held.
func (s *MemoryStore[V]) evict(now time.Time, n int) int {
	if n <= 0 || len(s.entries) == 0 {
		return 0
	}
	candidates := make([]*Entry[V], 0, len(s.entries))
	for _, entry := range s.entries {
		candidates = append(candidates, entry)
	}
	evictionOrder(candidates, s.policy, now)
	if n > len(candidates) {
		n = len(candidates)
	}
	for _, entry := range candidates[:n] {
		s.removeEntry(entry)
	}
	s.evictions += int64(n)
	s.metrics.SetAmount(len(s.entries))
	s.metrics.AddEvictions(n)
	s.logger.Debug("cache entries evicted", log.Int("evicted", n), log.String("policy", string(s.policy)))
	return n
}

// evictionBatch returns the number of entries evicted at once when the store is full.
func evictionBatch(capacity int) int {
	if n := capacity / 4; n > 1 {
		return n
	}
	return 1
}
