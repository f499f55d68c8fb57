/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"errors"
	"fmt"
)

// ErrInvalidConfiguration is the error all configuration errors are matched with (see errors.Is).
var ErrInvalidConfiguration = errors.New("invalid rate limit configuration")

// ErrCapacityExceeded is returned by Guard helpers when the guarded call was not admitted.
// Callers should treat it as "retry later".
var ErrCapacityExceeded = errors.New("rate limit capacity exceeded")

// ConfigurationError is returned when a service is configured with invalid parameters.
// It reflects a programming mistake, not transient load.
type ConfigurationError struct {
	Service string
	Field   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Service == "" {
		return fmt.Sprintf("%s: %s %s", ErrInvalidConfiguration, e.Field, e.Reason)
	}
	return fmt.Sprintf("%s for service %q: %s %s", ErrInvalidConfiguration, e.Service, e.Field, e.Reason)
}

// Unwrap returns ErrInvalidConfiguration.
func (e *ConfigurationError) Unwrap() error {
	return ErrInvalidConfiguration
}
