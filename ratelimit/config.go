/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"fmt"
	"time"
)

// StrategyType is a name of the admission algorithm.
type StrategyType string

// Admission algorithms.
const (
	StrategyTokenBucket         StrategyType = "token_bucket"
	StrategySlidingWindow       StrategyType = "sliding_window"
	StrategyFixedWindow         StrategyType = "fixed_window"
	StrategyLeakyBucket         StrategyType = "leaky_bucket"
	StrategySlidingWindowApprox StrategyType = "sliding_window_approx"
)

// DefaultBackoffFactor is a multiplier applied to the poll interval of WaitForCapacity
// after each unsuccessful poll when Config.BackoffFactor is not set.
const DefaultBackoffFactor = 1.5

// AvailableStrategies returns names of all supported admission algorithms.
func AvailableStrategies() []string {
	return []string{
		string(StrategyTokenBucket),
		string(StrategySlidingWindow),
		string(StrategyFixedWindow),
		string(StrategyLeakyBucket),
		string(StrategySlidingWindowApprox),
	}
}

// Config describes admission parameters of a single service.
// It is immutable once the service is configured, re-configuration replaces it completely.
type Config struct {
	// MaxRequests is a number of units that may be consumed per Window. Must be positive.
	MaxRequests int

	// Window is a duration of the rate window. Must be positive.
	Window time.Duration

	// Strategy is an admission algorithm. Empty value means token_bucket.
	Strategy StrategyType

	// BurstLimit is a capacity of the bucket for token_bucket and leaky_bucket algorithms.
	// Zero means MaxRequests. Other algorithms ignore it.
	BurstLimit int

	// BackoffFactor is a multiplier for the poll interval of WaitForCapacity.
	// Zero means DefaultBackoffFactor. Otherwise, it must be >= 1.
	BackoffFactor float64
}

// Validate checks the configuration and returns *ConfigurationError if it's invalid.
func (c Config) Validate() error {
	return c.validate("")
}

func (c Config) validate(service string) error {
	newErr := func(field, reason string) error {
		return &ConfigurationError{Service: service, Field: field, Reason: reason}
	}
	if c.MaxRequests <= 0 {
		return newErr("maxRequests", fmt.Sprintf("must be positive, got %d", c.MaxRequests))
	}
	if c.Window <= 0 {
		return newErr("window", fmt.Sprintf("must be positive, got %s", c.Window))
	}
	switch c.strategy() {
	case StrategyTokenBucket, StrategySlidingWindow, StrategyFixedWindow, StrategyLeakyBucket, StrategySlidingWindowApprox:
	default:
		return newErr("strategy", fmt.Sprintf("is unknown (%q), should be one of %v", c.Strategy, AvailableStrategies()))
	}
	if c.BurstLimit < 0 {
		return newErr("burstLimit", fmt.Sprintf("must not be negative, got %d", c.BurstLimit))
	}
	if c.BackoffFactor != 0 && c.BackoffFactor < 1 {
		return newErr("backoffFactor", fmt.Sprintf("must be >= 1, got %v", c.BackoffFactor))
	}
	return nil
}

func (c Config) strategy() StrategyType {
	if c.Strategy == "" {
		return StrategyTokenBucket
	}
	return c.Strategy
}

func (c Config) capacity() int {
	if c.BurstLimit > 0 {
		return c.BurstLimit
	}
	return c.MaxRequests
}

func (c Config) backoffFactor() float64 {
	if c.BackoffFactor == 0 {
		return DefaultBackoffFactor
	}
	return c.BackoffFactor
}

// newStrategy creates a fresh (full capacity) strategy state for the validated configuration.
func newStrategy(c Config) (Strategy, error) {
	switch c.strategy() {
	case StrategyTokenBucket:
		return NewTokenBucket(c.MaxRequests, c.Window, c.capacity()), nil
	case StrategySlidingWindow:
		return NewSlidingWindow(c.MaxRequests, c.Window), nil
	case StrategyFixedWindow:
		return NewFixedWindow(c.MaxRequests, c.Window), nil
	case StrategyLeakyBucket:
		return NewLeakyBucket(c.MaxRequests, c.Window, c.capacity())
	case StrategySlidingWindowApprox:
		return NewApproxSlidingWindow(c.MaxRequests, c.Window)
	}
	return nil, &ConfigurationError{Field: "strategy", Reason: fmt.Sprintf("is unknown (%q)", c.Strategy)}
}
