/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"fmt"
	"time"

	"github.com/acronis/go-governor/config"
)

const cfgDefaultKeyPrefix = "cache"

const (
	cfgKeyMemoryCapacity      = "memory.capacity"
	cfgKeyMemoryPolicy        = "memory.policy"
	cfgKeyMemorySweepInterval = "memory.sweepInterval"
	cfgKeyMemoryDefaultTTL    = "memory.defaultTTL"
	cfgKeyMemoryMaxEntrySize  = "memory.maxEntrySize"
	cfgKeyDurableEnabled      = "durable.enabled"
	cfgKeyDurableTimeout      = "durable.timeout"
	cfgKeyDurableNamespace    = "durable.namespace"
)

// Default values.
const (
	DefaultMemoryCapacity   = 1000
	DefaultDurableNamespace = "governor"
)

// MemoryConfig represents configuration parameters of the memory tier.
type MemoryConfig struct {
	Capacity      int             `mapstructure:"capacity" yaml:"capacity" json:"capacity"`
	Policy        Policy          `mapstructure:"policy" yaml:"policy" json:"policy"`
	SweepInterval time.Duration   `mapstructure:"sweepInterval" yaml:"sweepInterval" json:"sweepInterval"`
	DefaultTTL    time.Duration   `mapstructure:"defaultTTL" yaml:"defaultTTL" json:"defaultTTL"`
	MaxEntrySize  config.ByteSize `mapstructure:"maxEntrySize" yaml:"maxEntrySize" json:"maxEntrySize"`
}

// DurableConfig represents configuration parameters of the durable tier.
// Connection parameters of the backend are configured separately (see redisstore.Config).
type DurableConfig struct {
	Enabled   bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Timeout   time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout"`
	Namespace string        `mapstructure:"namespace" yaml:"namespace" json:"namespace"`
}

// Config represents a set of configuration parameters for the tiered cache.
type Config struct {
	Memory  MemoryConfig  `mapstructure:"memory" yaml:"memory" json:"memory"`
	Durable DurableConfig `mapstructure:"durable" yaml:"durable" json:"durable"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Memory: MemoryConfig{
			Capacity:      DefaultMemoryCapacity,
			Policy:        PolicyLRU,
			SweepInterval: DefaultSweepInterval,
		},
		Durable: DurableConfig{
			Timeout:   DefaultDurableTimeout,
			Namespace: DefaultDurableNamespace,
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return cfgDefaultKeyPrefix
}

// SetProviderDefaults sets default configuration values for the cache in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyMemoryCapacity, DefaultMemoryCapacity)
	dp.SetDefault(cfgKeyMemoryPolicy, string(PolicyLRU))
	dp.SetDefault(cfgKeyMemorySweepInterval, DefaultSweepInterval)
	dp.SetDefault(cfgKeyDurableTimeout, DefaultDurableTimeout)
	dp.SetDefault(cfgKeyDurableNamespace, DefaultDurableNamespace)
}

// Set sets cache configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	if err := c.setMemoryConfig(dp); err != nil {
		return err
	}
	return c.setDurableConfig(dp)
}

func (c *Config) setMemoryConfig(dp config.DataProvider) error {
	var err error
	if c.Memory.Capacity, err = dp.GetInt(cfgKeyMemoryCapacity); err != nil {
		return err
	}
	if c.Memory.Capacity <= 0 {
		return dp.WrapKeyErr(cfgKeyMemoryCapacity, fmt.Errorf("must be positive"))
	}
	policyStr, err := dp.GetStringFromSet(cfgKeyMemoryPolicy, AvailablePolicies(), true)
	if err != nil {
		return err
	}
	if c.Memory.Policy, err = ParsePolicy(policyStr); err != nil {
		return dp.WrapKeyErr(cfgKeyMemoryPolicy, err)
	}
	if c.Memory.SweepInterval, err = dp.GetDuration(cfgKeyMemorySweepInterval); err != nil {
		return err
	}
	if c.Memory.SweepInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyMemorySweepInterval, fmt.Errorf("must be positive"))
	}
	if c.Memory.DefaultTTL, err = dp.GetDuration(cfgKeyMemoryDefaultTTL); err != nil {
		return err
	}
	if c.Memory.DefaultTTL < 0 {
		return dp.WrapKeyErr(cfgKeyMemoryDefaultTTL, fmt.Errorf("must not be negative"))
	}
	if c.Memory.MaxEntrySize, err = dp.GetByteSize(cfgKeyMemoryMaxEntrySize); err != nil {
		return err
	}
	return nil
}

func (c *Config) setDurableConfig(dp config.DataProvider) error {
	var err error
	if c.Durable.Enabled, err = dp.GetBool(cfgKeyDurableEnabled); err != nil {
		return err
	}
	if c.Durable.Timeout, err = dp.GetDuration(cfgKeyDurableTimeout); err != nil {
		return err
	}
	if c.Durable.Timeout <= 0 {
		return dp.WrapKeyErr(cfgKeyDurableTimeout, fmt.Errorf("must be positive"))
	}
	if c.Durable.Namespace, err = dp.GetString(cfgKeyDurableNamespace); err != nil {
		return err
	}
	if c.Durable.Enabled && c.Durable.Namespace == "" {
		return dp.WrapKeyErr(cfgKeyDurableNamespace, fmt.Errorf("cannot be empty when durable tier is enabled"))
	}
	return nil
}

// MemoryStoreOptsFromConfig returns options for NewMemoryStoreWithOpts filled from the configuration.
func MemoryStoreOptsFromConfig[V any](cfg *Config) MemoryStoreOpts[V] {
	return MemoryStoreOpts[V]{
		DefaultTTL:    cfg.Memory.DefaultTTL,
		MaxEntrySize:  int(cfg.Memory.MaxEntrySize),
		SweepInterval: cfg.Memory.SweepInterval,
	}
}
