/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"sort"
	"sync"
	"time"

	"github.com/acronis/go-governor/log"
)

// Default poll intervals for WaitForCapacity.
const (
	DefaultPollInterval    = 10 * time.Millisecond
	DefaultMaxPollInterval = time.Second
)

// RegistryOpts represents options for the Registry.
type RegistryOpts struct {
	// Logger is used for logging configuration changes and blocked waits. Logging is disabled if nil.
	Logger log.FieldLogger

	// MetricsCollector collects admission metrics. Metrics are disabled if nil.
	MetricsCollector MetricsCollector

	// Clock returns the current time. time.Now is used if nil.
	Clock func() time.Time

	// PollInterval is the initial interval between re-checks in WaitForCapacity.
	// DefaultPollInterval is used if zero.
	PollInterval time.Duration

	// MaxPollInterval caps the growth of the poll interval in WaitForCapacity.
	// DefaultMaxPollInterval is used if zero.
	MaxPollInterval time.Duration
}

type serviceEntry struct {
	mu       sync.Mutex
	cfg      Config
	strategy Strategy
	stats    ServiceStats
}

// Registry keeps admission state for named services.
// All methods are safe for concurrent use. Checks for different services never contend with each other.
//
// Services that were never configured are not limited: every check for them is allowed
// and no statistics are recorded.
type Registry struct {
	mu       sync.RWMutex
	services map[string]*serviceEntry

	logger           log.FieldLogger
	metricsCollector MetricsCollector
	clock            func() time.Time
	pollInterval     time.Duration
	maxPollInterval  time.Duration
}

// NewRegistry creates a new Registry with default options.
func NewRegistry() *Registry {
	return NewRegistryWithOpts(RegistryOpts{})
}

// NewRegistryWithOpts creates a new Registry with the provided options.
func NewRegistryWithOpts(opts RegistryOpts) *Registry {
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetrics{}
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.MaxPollInterval <= 0 {
		opts.MaxPollInterval = DefaultMaxPollInterval
	}
	if opts.MaxPollInterval < opts.PollInterval {
		opts.MaxPollInterval = opts.PollInterval
	}
	return &Registry{
		services:         make(map[string]*serviceEntry),
		logger:           opts.Logger,
		metricsCollector: opts.MetricsCollector,
		clock:            opts.Clock,
		pollInterval:     opts.PollInterval,
		maxPollInterval:  opts.MaxPollInterval,
	}
}

// Configure installs (or replaces) admission parameters for the service.
// The algorithm state starts fresh with full capacity, statistics of the service are preserved.
// Invalid parameters are rejected with *ConfigurationError and the previous configuration stays in effect.
func (r *Registry) Configure(service string, cfg Config) error {
	if err := cfg.validate(service); err != nil {
		return err
	}
	strategy, err := newStrategy(cfg)
	if err != nil {
		return err
	}

	r.mu.Lock()
	entry, exists := r.services[service]
	if !exists {
		entry = &serviceEntry{}
		r.services[service] = entry
	}
	r.mu.Unlock()

	entry.mu.Lock()
	entry.cfg = cfg
	entry.strategy = strategy
	entry.mu.Unlock()

	r.logger.Debug("rate limit configured",
		log.String("service", service),
		log.String("strategy", string(cfg.strategy())),
		log.Int("max_requests", cfg.MaxRequests),
		log.Duration("window", cfg.Window),
		log.Bool("reconfigured", exists),
	)
	return nil
}

// ConfigureAll configures all services from the map. It stops at the first invalid configuration.
// Services are configured in lexical order, so the result is deterministic.
func (r *Registry) ConfigureAll(cfgs map[string]Config) error {
	names := make([]string, 0, len(cfgs))
	for name := range cfgs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.Configure(name, cfgs[name]); err != nil {
			return err
		}
	}
	return nil
}

// IsAllowed checks whether one request for the service can be admitted now and consumes capacity if so.
func (r *Registry) IsAllowed(service string) bool {
	return r.IsAllowedN(service, 1)
}

// IsAllowedN checks whether a request of the given cost can be admitted now and consumes capacity if so.
// Non-positive cost is always allowed and consumes nothing.
func (r *Registry) IsAllowedN(service string, cost int) bool {
	entry := r.lookup(service)
	if entry == nil {
		return true
	}
	entry.mu.Lock()
	now := r.clock()
	allowed := cost <= 0 || entry.strategy.TryConsume(now, cost)
	entry.stats.record(allowed, now)
	entry.mu.Unlock()

	if allowed {
		r.metricsCollector.IncRequests(service, DecisionAllowed)
	} else {
		r.metricsCollector.IncRequests(service, DecisionBlocked)
	}
	return allowed
}

// WaitTime returns the estimated time until one request for the service can be admitted.
// It returns 0 when the request can be admitted now or the service is not configured.
// It never consumes capacity.
func (r *Registry) WaitTime(service string) time.Duration {
	return r.WaitTimeN(service, 1)
}

// WaitTimeN is like WaitTime but for a request of the given cost.
// InfDuration is returned if the cost exceeds the capacity of the service.
func (r *Registry) WaitTimeN(service string, cost int) time.Duration {
	if cost <= 0 {
		return 0
	}
	entry := r.lookup(service)
	if entry == nil {
		return 0
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.strategy.TimeUntilAvailable(r.clock(), cost)
}

// Stats returns a snapshot of the service's statistics.
// The second value is false if the service is not configured.
func (r *Registry) Stats(service string) (ServiceStats, bool) {
	entry := r.lookup(service)
	if entry == nil {
		return ServiceStats{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.stats, true
}

// AllStats returns snapshots of statistics of all configured services.
func (r *Registry) AllStats() map[string]ServiceStats {
	r.mu.RLock()
	entries := make(map[string]*serviceEntry, len(r.services))
	for name, entry := range r.services {
		entries[name] = entry
	}
	r.mu.RUnlock()

	result := make(map[string]ServiceStats, len(entries))
	for name, entry := range entries {
		entry.mu.Lock()
		result[name] = entry.stats
		entry.mu.Unlock()
	}
	return result
}

// ResetStats zeroes statistics of the service. It returns false if the service is not configured.
func (r *Registry) ResetStats(service string) bool {
	entry := r.lookup(service)
	if entry == nil {
		return false
	}
	entry.mu.Lock()
	entry.stats = ServiceStats{}
	entry.mu.Unlock()
	r.logger.Info("rate limit stats reset", log.String("service", service))
	return true
}

// Services returns names of all configured services in lexical order.
func (r *Registry) Services() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.services))
	for name := range r.services {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// ServiceConfig returns the current configuration of the service.
// The second value is false if the service is not configured.
func (r *Registry) ServiceConfig(service string) (Config, bool) {
	entry := r.lookup(service)
	if entry == nil {
		return Config{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.cfg, true
}

// Reset restores full capacity of the service keeping its configuration and statistics.
// It returns false if the service is not configured.
func (r *Registry) Reset(service string) bool {
	entry := r.lookup(service)
	if entry == nil {
		return false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	strategy, err := newStrategy(entry.cfg)
	if err != nil {
		r.logger.Error("failed to reset rate limit", log.String("service", service), log.Error(err))
		return false
	}
	entry.strategy = strategy
	return true
}

func (r *Registry) lookup(service string) *serviceEntry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.services[service]
}
