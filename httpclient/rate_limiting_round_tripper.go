/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"github.com/acronis/go-governor/log"
	"github.com/acronis/go-governor/ratelimit"
)

// Default parameter values for RateLimitingRoundTripper.
const (
	DefaultRateLimitingCost        = 1
	DefaultRateLimitingWaitTimeout = 15 * time.Second
)

// RateLimitingRoundTripperOpts represents options for RateLimitingRoundTripper.
type RateLimitingRoundTripperOpts struct {
	// Cost is the number of units every request consumes. DefaultRateLimitingCost is used if zero.
	// It may be overridden per request with NewContextWithCost.
	Cost int

	// WaitTimeout limits waiting for capacity. DefaultRateLimitingWaitTimeout is used if zero.
	WaitTimeout time.Duration

	// Logger is used for logging rejected requests. Logging is disabled if nil.
	Logger log.FieldLogger
}

// RateLimitingRoundTripper wraps implementing http.RoundTripper interface object
// and waits for capacity of the service in the registry before every outgoing request.
// Requests of services that are not configured in the registry are not limited.
type RateLimitingRoundTripper struct {
	Delegate    http.RoundTripper
	Registry    *ratelimit.Registry
	Service     string
	Cost        int
	WaitTimeout time.Duration

	logger log.FieldLogger
}

// NewRateLimitingRoundTripper creates a new RateLimitingRoundTripper for the service.
func NewRateLimitingRoundTripper(
	delegate http.RoundTripper, registry *ratelimit.Registry, service string,
) (*RateLimitingRoundTripper, error) {
	return NewRateLimitingRoundTripperWithOpts(delegate, registry, service, RateLimitingRoundTripperOpts{})
}

// NewRateLimitingRoundTripperWithOpts creates a new RateLimitingRoundTripper for the service with options.
// For options that are not presented, the default values will be used.
func NewRateLimitingRoundTripperWithOpts(
	delegate http.RoundTripper, registry *ratelimit.Registry, service string, opts RateLimitingRoundTripperOpts,
) (*RateLimitingRoundTripper, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry must be provided")
	}
	if service == "" {
		return nil, fmt.Errorf("service must not be empty")
	}
	if opts.Cost < 0 {
		return nil, fmt.Errorf("cost must be positive")
	}
	if opts.Cost == 0 {
		opts.Cost = DefaultRateLimitingCost
	}
	if opts.WaitTimeout < 0 {
		return nil, fmt.Errorf("wait timeout must not be negative")
	}
	if opts.WaitTimeout == 0 {
		opts.WaitTimeout = DefaultRateLimitingWaitTimeout
	}
	if opts.Logger == nil {
		opts.Logger = log.NewDisabledLogger()
	}
	if delegate == nil {
		delegate = http.DefaultTransport
	}
	return &RateLimitingRoundTripper{
		Delegate:    delegate,
		Registry:    registry,
		Service:     service,
		Cost:        opts.Cost,
		WaitTimeout: opts.WaitTimeout,
		logger:      opts.Logger,
	}, nil
}

// RoundTrip executes a single HTTP transaction, returning a Response for the provided Request.
func (rt *RateLimitingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()
	service := GetServiceFromContext(ctx)
	if service == "" {
		service = rt.Service
	}
	cost := GetCostFromContext(ctx)
	if cost == 0 {
		cost = rt.Cost
	}

	if rt.Registry.WaitForCapacity(ctx, service, cost, rt.WaitTimeout) {
		return rt.Delegate.RoundTrip(r)
	}

	if r.Body != nil {
		_ = r.Body.Close() // Per RoundTripper contract.
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	rt.logger.Warn("outgoing request is rejected by rate limiting",
		log.String("service", service), log.String("method", r.Method), log.String("url", r.URL.Redacted()))
	return nil, &RateLimitingWaitError{Service: service, Inner: ratelimit.ErrCapacityExceeded}
}

// RateLimitingWaitError is returned in RoundTrip method of RateLimitingRoundTripper
// when there was no capacity for the request within the wait timeout.
type RateLimitingWaitError struct {
	Service string
	Inner   error
}

func (e *RateLimitingWaitError) Error() string {
	return fmt.Sprintf("wait due to client side rate limiting of service %q: %s", e.Service, e.Inner.Error())
}

// Unwrap returns the next error in the error chain.
func (e *RateLimitingWaitError) Unwrap() error {
	return e.Inner
}
