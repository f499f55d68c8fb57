/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package redisstore

import (
	"fmt"
	"time"

	"github.com/acronis/go-governor/config"
)

const cfgDefaultKeyPrefix = "cache.redis"

const (
	cfgKeyAddr            = "addr"
	cfgKeyPassword        = "password"
	cfgKeyDB              = "db"
	cfgKeyDialTimeout     = "dialTimeout"
	cfgKeyReadTimeout     = "readTimeout"
	cfgKeyWriteTimeout    = "writeTimeout"
	cfgKeyPoolSize        = "poolSize"
	cfgKeyConnectAttempts = "connectAttempts"
)

// Default values.
const (
	DefaultAddr            = "localhost:6379"
	DefaultDialTimeout     = 5 * time.Second
	DefaultReadTimeout     = 3 * time.Second
	DefaultWriteTimeout    = 3 * time.Second
	DefaultPoolSize        = 10
	DefaultConnectAttempts = 3
)

// Config represents a set of configuration parameters for the Redis connection.
type Config struct {
	Addr            string        `mapstructure:"addr" yaml:"addr" json:"addr"`
	Password        string        `mapstructure:"password" yaml:"password" json:"password"`
	DB              int           `mapstructure:"db" yaml:"db" json:"db"`
	DialTimeout     time.Duration `mapstructure:"dialTimeout" yaml:"dialTimeout" json:"dialTimeout"`
	ReadTimeout     time.Duration `mapstructure:"readTimeout" yaml:"readTimeout" json:"readTimeout"`
	WriteTimeout    time.Duration `mapstructure:"writeTimeout" yaml:"writeTimeout" json:"writeTimeout"`
	PoolSize        int           `mapstructure:"poolSize" yaml:"poolSize" json:"poolSize"`
	ConnectAttempts int           `mapstructure:"connectAttempts" yaml:"connectAttempts" json:"connectAttempts"`
}

var _ config.Config = (*Config)(nil)
var _ config.KeyPrefixProvider = (*Config)(nil)

// NewDefaultConfig creates a new instance of the Config with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Addr:            DefaultAddr,
		DialTimeout:     DefaultDialTimeout,
		ReadTimeout:     DefaultReadTimeout,
		WriteTimeout:    DefaultWriteTimeout,
		PoolSize:        DefaultPoolSize,
		ConnectAttempts: DefaultConnectAttempts,
	}
}

// KeyPrefix returns a key prefix with which all configuration parameters should be presented.
// Implements config.KeyPrefixProvider interface.
func (c *Config) KeyPrefix() string {
	return cfgDefaultKeyPrefix
}

// SetProviderDefaults sets default configuration values for the Redis connection in config.DataProvider.
// Implements config.Config interface.
func (c *Config) SetProviderDefaults(dp config.DataProvider) {
	dp.SetDefault(cfgKeyAddr, DefaultAddr)
	dp.SetDefault(cfgKeyDialTimeout, DefaultDialTimeout)
	dp.SetDefault(cfgKeyReadTimeout, DefaultReadTimeout)
	dp.SetDefault(cfgKeyWriteTimeout, DefaultWriteTimeout)
	dp.SetDefault(cfgKeyPoolSize, DefaultPoolSize)
	dp.SetDefault(cfgKeyConnectAttempts, DefaultConnectAttempts)
}

// Set sets Redis connection configuration values from config.DataProvider.
// Implements config.Config interface.
func (c *Config) Set(dp config.DataProvider) error {
	var err error
	if c.Addr, err = dp.GetString(cfgKeyAddr); err != nil {
		return err
	}
	if c.Addr == "" {
		return dp.WrapKeyErr(cfgKeyAddr, fmt.Errorf("cannot be empty"))
	}
	if c.Password, err = dp.GetString(cfgKeyPassword); err != nil {
		return err
	}
	if c.DB, err = dp.GetInt(cfgKeyDB); err != nil {
		return err
	}
	if c.DB < 0 {
		return dp.WrapKeyErr(cfgKeyDB, fmt.Errorf("must not be negative"))
	}
	for _, d := range []struct {
		key string
		dst *time.Duration
	}{
		{cfgKeyDialTimeout, &c.DialTimeout},
		{cfgKeyReadTimeout, &c.ReadTimeout},
		{cfgKeyWriteTimeout, &c.WriteTimeout},
	} {
		if *d.dst, err = dp.GetDuration(d.key); err != nil {
			return err
		}
		if *d.dst <= 0 {
			return dp.WrapKeyErr(d.key, fmt.Errorf("must be positive"))
		}
	}
	if c.PoolSize, err = dp.GetInt(cfgKeyPoolSize); err != nil {
		return err
	}
	if c.PoolSize <= 0 {
		return dp.WrapKeyErr(cfgKeyPoolSize, fmt.Errorf("must be positive"))
	}
	if c.ConnectAttempts, err = dp.GetInt(cfgKeyConnectAttempts); err != nil {
		return err
	}
	if c.ConnectAttempts <= 0 {
		return dp.WrapKeyErr(cfgKeyConnectAttempts, fmt.Errorf("must be positive"))
	}
	return nil
}
