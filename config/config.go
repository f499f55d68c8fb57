/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package config loads configuration sections (rate limiting, caching, logging, etc.)
// from YAML/JSON sources and environment variables.
//
// Each section implements the Config interface: SetProviderDefaults registers default values
// in a DataProvider, and Set reads and validates the values.
// Sections may also implement KeyPrefixProvider to be loaded from a nested key
// (e.g., "ratelimit" or "cache.redis").
package config

// Config is a common interface for configuration objects that may be used by Loader.
type Config interface {
	SetProviderDefaults(dp DataProvider)
	Set(dp DataProvider) error
}

// KeyPrefixProvider is an interface for providing key prefix that will be used for configuration parameters.
type KeyPrefixProvider interface {
	KeyPrefix() string
}

// dataProviderFor returns a data provider that takes into account a key prefix of the config (if any).
func dataProviderFor(dp DataProvider, cfg Config) DataProvider {
	if kp, ok := cfg.(KeyPrefixProvider); ok && kp.KeyPrefix() != "" {
		return NewKeyPrefixedDataProvider(dp, kp.KeyPrefix())
	}
	return dp
}
