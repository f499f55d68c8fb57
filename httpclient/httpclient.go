/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package httpclient provides an HTTP client whose outgoing requests are admitted by ratelimit.Registry.
package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/acronis/go-governor/ratelimit"
)

// Opts provides options for NewWithOpts and MustWithOpts functions.
type Opts struct {
	// Delegate is the next RoundTripper in the chain. A clone of http.DefaultTransport is used if nil.
	Delegate http.RoundTripper

	// Timeout is a timeout of the whole request including waiting for capacity. Zero means no timeout.
	Timeout time.Duration

	// RateLimiting contains options for RateLimitingRoundTripper.
	RateLimiting RateLimitingRoundTripperOpts
}

// New creates an HTTP client whose requests consume capacity of the service in the registry.
func New(registry *ratelimit.Registry, service string) (*http.Client, error) {
	return NewWithOpts(registry, service, Opts{})
}

// Must creates an HTTP client whose requests consume capacity of the service in the registry
// and panics if any error occurs.
func Must(registry *ratelimit.Registry, service string) *http.Client {
	return MustWithOpts(registry, service, Opts{})
}

// NewWithOpts creates an HTTP client whose requests consume capacity of the service in the registry.
func NewWithOpts(registry *ratelimit.Registry, service string, opts Opts) (*http.Client, error) {
	delegate := opts.Delegate
	if delegate == nil {
		delegate = http.DefaultTransport.(*http.Transport).Clone()
	}
	tr, err := NewRateLimitingRoundTripperWithOpts(delegate, registry, service, opts.RateLimiting)
	if err != nil {
		return nil, fmt.Errorf("create rate limiting round tripper: %w", err)
	}
	return &http.Client{Transport: tr, Timeout: opts.Timeout}, nil
}

// MustWithOpts creates an HTTP client whose requests consume capacity of the service in the registry
// and panics if any error occurs.
func MustWithOpts(registry *ratelimit.Registry, service string, opts Opts) *http.Client {
	client, err := NewWithOpts(registry, service, opts)
	if err != nil {
		panic(err)
	}
	return client
}
