/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package adminapi

import (
	"fmt"
	"time"

	"github.com/acronis/go-governor/config"
)

const cfgDefaultKeyPrefix = "admin"

const (
	cfgKeyAddress          = "address"
	cfgKeyTimeoutsRead     = "timeouts.read"
	cfgKeyTimeoutsWrite    = "timeouts.write"
	cfgKeyTimeoutsIdle     = "timeouts.idle"
	cfgKeyTimeoutsShutdown = "timeouts.shutdown"
)

// Default values.
const (
	DefaultAddress          = ":8090"
	DefaultTimeoutsRead     = 15 * time.Second
	DefaultTimeoutsWrite    = 30 * time.Second
	DefaultTimeoutsIdle     = time.Minute
	DefaultTimeoutsShutdown = 5 * time.Second
)

// TimeoutsConfig represents a set of timeouts of the admin server.
type TimeoutsConfig struct {
	Read     time.Duration `mapstructure:"read" yaml:"read" json:"read"`
	Write    time.Duration `mapstructure:"write" yaml:"write" json:"write"`
	Idle     time.Duration `mapstructure:"idle" yaml:"idle" json:"idle"`
	Shutdown time.Duration `mapstructure:"shutdown" yaml:"shutdown" json:"shutdown"`
}

// Config represents a set of configuration parameters for the admin server.
type Config struct {
	Address  string         `mapstructure:"address" yaml:"address" json:"address"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts" yaml:"timeouts" json:"timeouts"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Address: DefaultAddress,
		Timeouts: TimeoutsConfig{
			Read:     DefaultTimeoutsRead,
			Write:    DefaultTimeoutsWrite,
			Idle:     DefaultTimeoutsIdle,
			Shutdown: DefaultTimeoutsShutdown,
		},
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return cfgDefaultKeyPrefix
}

// SetProviderDefaults sets default configuration values for the admin server in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyAddress, DefaultAddress)
	dp.SetDefault(cfgKeyTimeoutsRead, DefaultTimeoutsRead)
	dp.SetDefault(cfgKeyTimeoutsWrite, DefaultTimeoutsWrite)
	dp.SetDefault(cfgKeyTimeoutsIdle, DefaultTimeoutsIdle)
	dp.SetDefault(cfgKeyTimeoutsShutdown, DefaultTimeoutsShutdown)
}

// Set sets admin server configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Address, err = dp.GetString(cfgKeyAddress); err != nil {
		return err
	}
	if c.Address == "" {
		return dp.WrapKeyErr(cfgKeyAddress, fmt.Errorf("cannot be empty"))
	}
	for _, t := range []struct {
		key string
		dst *time.Duration
	}{
		{cfgKeyTimeoutsRead, &c.Timeouts.Read},
		{cfgKeyTimeoutsWrite, &c.Timeouts.Write},
		{cfgKeyTimeoutsIdle, &c.Timeouts.Idle},
		{cfgKeyTimeoutsShutdown, &c.Timeouts.Shutdown},
	} {
		if *t.dst, err = dp.GetDuration(t.key); err != nil {
			return err
		}
		if *t.dst < 0 {
			return dp.WrapKeyErr(t.key, fmt.Errorf("must not be negative"))
		}
	}
	return nil
}
