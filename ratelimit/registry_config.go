/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"fmt"
	"math"
	"time"

	"github.com/acronis/go-governor/config"
)

const cfgDefaultKeyPrefix = "ratelimit"

const (
	cfgKeyServices            = "services"
	cfgKeyDefaultPollInterval = "defaultPollInterval"
	cfgKeyMaxPollInterval     = "maxPollInterval"
)

// ServiceConfig is a configuration of a single service as it's presented in the configuration file.
// Window may be set either as a duration string ("window: 10s") or as a number of seconds ("windowSeconds: 10").
type ServiceConfig struct {
	MaxRequests   int                 `mapstructure:"maxRequests" yaml:"maxRequests" json:"maxRequests"`
	WindowSeconds float64             `mapstructure:"windowSeconds" yaml:"windowSeconds" json:"windowSeconds"`
	Window        config.TimeDuration `mapstructure:"window" yaml:"window" json:"window"`
	Strategy      string              `mapstructure:"strategy" yaml:"strategy" json:"strategy"`
	BurstLimit    int                 `mapstructure:"burstLimit" yaml:"burstLimit" json:"burstLimit"`
	BackoffFactor float64             `mapstructure:"backoffFactor" yaml:"backoffFactor" json:"backoffFactor"`
}

// RegistryConfig represents a set of configuration parameters for the rate limiter registry.
//
// Note that service names are case-insensitive in configuration files and are lowercased on loading.
type RegistryConfig struct {
	Services            map[string]Config
	DefaultPollInterval time.Duration
	MaxPollInterval     time.Duration

	keyPrefix string
}

var _ config.Config = (*RegistryConfig)(nil)
var _ config.KeyPrefixProvider = (*RegistryConfig)(nil)

// RegistryConfigOption is a type for functional options for the RegistryConfig.
type RegistryConfigOption func(*registryConfigOptions)

type registryConfigOptions struct {
	keyPrefix string
}

// WithKeyPrefix returns a RegistryConfigOption that sets a key prefix for parsing configuration parameters.
// This prefix will be used by config.Loader.
func WithKeyPrefix(keyPrefix string) RegistryConfigOption {
	return func(o *registryConfigOptions) {
		o.keyPrefix = keyPrefix
	}
}

// NewRegistryConfig creates a new instance of the RegistryConfig.
func NewRegistryConfig(options ...RegistryConfigOption) *RegistryConfig {
	opts := registryConfigOptions{keyPrefix: cfgDefaultKeyPrefix}
	for _, opt := range options {
		opt(&opts)
	}
	return &RegistryConfig{keyPrefix: opts.keyPrefix}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *RegistryConfig) KeyPrefix() string {
	if c.keyPrefix == "" {
		return cfgDefaultKeyPrefix
	}
	return c.keyPrefix
}

// SetProviderDefaults sets default configuration values for the registry in config.DataProvider.
// Implements config.Config interface.
func (c *RegistryConfig) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyDefaultPollInterval, DefaultPollInterval)
	dp.SetDefault(cfgKeyMaxPollInterval, DefaultMaxPollInterval)
}

// Set sets registry configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *RegistryConfig) Set(dp config.DataProvider) error {
	var err error
	if c.DefaultPollInterval, err = dp.GetDuration(cfgKeyDefaultPollInterval); err != nil {
		return err
	}
	if c.DefaultPollInterval <= 0 {
		return dp.WrapKeyErr(cfgKeyDefaultPollInterval, fmt.Errorf("must be positive"))
	}
	if c.MaxPollInterval, err = dp.GetDuration(cfgKeyMaxPollInterval); err != nil {
		return err
	}
	if c.MaxPollInterval < c.DefaultPollInterval {
		return dp.WrapKeyErr(cfgKeyMaxPollInterval, fmt.Errorf("must be >= %s", cfgKeyDefaultPollInterval))
	}

	var rawServices map[string]ServiceConfig
	if err = dp.UnmarshalKey(cfgKeyServices, &rawServices, config.WithTextUnmarshalHook()); err != nil {
		return err
	}
	c.Services = make(map[string]Config, len(rawServices))
	for name, raw := range rawServices {
		svcCfg, convErr := raw.toConfig()
		if convErr == nil {
			convErr = svcCfg.validate(name)
		}
		if convErr != nil {
			return dp.WrapKeyErr(cfgKeyServices+"."+name, convErr)
		}
		c.Services[name] = svcCfg
	}
	return nil
}

// RegistryOpts returns options for NewRegistryWithOpts filled from the configuration.
func (c *RegistryConfig) RegistryOpts() RegistryOpts {
	return RegistryOpts{PollInterval: c.DefaultPollInterval, MaxPollInterval: c.MaxPollInterval}
}

func (sc ServiceConfig) toConfig() (Config, error) {
	window := time.Duration(sc.Window)
	if sc.WindowSeconds != 0 {
		if window != 0 {
			return Config{}, fmt.Errorf("only one of window and windowSeconds may be set")
		}
		if sc.WindowSeconds < 0 || sc.WindowSeconds*float64(time.Second) > math.MaxInt64 {
			return Config{}, fmt.Errorf("windowSeconds is out of range: %v", sc.WindowSeconds)
		}
		window = time.Duration(sc.WindowSeconds * float64(time.Second))
	}
	return Config{
		MaxRequests:   sc.MaxRequests,
		Window:        window,
		Strategy:      StrategyType(sc.Strategy),
		BurstLimit:    sc.BurstLimit,
		BackoffFactor: sc.BackoffFactor,
	}, nil
}
