/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package retry provides helpers for retrying operations against external dependencies
// (e.g., connecting to the durable cache tier) with backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/acronis/go-governor/log"
)

// IsRetryable reports whether the error is transient and the operation may be retried.
type IsRetryable func(error) bool

// Func is an operation that may be retried.
type Func func(ctx context.Context) error

// Policy creates a backoff strategy for a single series of attempts.
type Policy interface {
	NewBackOff() backoff.BackOff
}

// PolicyFunc is an adapter to allow the use of ordinary functions as Policy.
type PolicyFunc func() backoff.BackOff

// NewBackOff calls f().
func (f PolicyFunc) NewBackOff() backoff.BackOff {
	return f()
}

// DoOpts represents options for DoWithOpts.
type DoOpts struct {
	// IsRetryable filters errors that lead to the next attempt. All errors are retried if nil.
	IsRetryable IsRetryable

	// Logger is used for logging failed attempts at warn level. Logging is disabled if nil.
	Logger log.FieldLogger

	// Operation is a name of the operation added to log messages.
	Operation string
}

// Do calls fn until it succeeds, the policy gives up or ctx is done. The last error is returned.
func Do(ctx context.Context, p Policy, fn Func) error {
	return DoWithOpts(ctx, p, fn, DoOpts{})
}

// DoWithOpts calls fn until it succeeds, returns a non-retryable error, the policy gives up or ctx is done.
func DoWithOpts(ctx context.Context, p Policy, fn Func, opts DoOpts) error {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	bctx := backoff.WithContext(p.NewBackOff(), ctx)
	attempt := 0
	op := func() error {
		attempt++
		err := fn(bctx.Context())
		if err != nil && opts.IsRetryable != nil && !opts.IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		logger.Warn("attempt failed, retrying",
			log.String("operation", opts.Operation), log.Int("attempt", attempt),
			log.Duration("delay", delay), log.Error(err))
	}
	return backoff.RetryNotify(op, bctx, notify)
}

// ExponentialBackoffPolicy makes up to MaxAttempts retries with delays growing 1.5 times
// from InitialInterval but not longer than MaxInterval.
type ExponentialBackoffPolicy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration // zero means the backoff library default (60s)
	MaxAttempts     int           // zero means no limit
}

// NewExponentialBackoffPolicy returns an exponential backoff policy with the given initial interval
// and max number of retries.
func NewExponentialBackoffPolicy(initialInterval time.Duration, maxAttempts int) ExponentialBackoffPolicy {
	return ExponentialBackoffPolicy{InitialInterval: initialInterval, MaxAttempts: maxAttempts}
}

// NewBackOff implements Policy.
func (p ExponentialBackoffPolicy) NewBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.InitialInterval
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0
	return withMaxRetries(eb, p.MaxAttempts)
}

// ConstantBackoffPolicy makes up to MaxAttempts retries with the constant delay.
type ConstantBackoffPolicy struct {
	Interval    time.Duration
	MaxAttempts int // zero means no limit
}

// NewConstantBackoffPolicy returns a constant backoff policy with the given interval and max number of retries.
func NewConstantBackoffPolicy(interval time.Duration, maxAttempts int) ConstantBackoffPolicy {
	return ConstantBackoffPolicy{Interval: interval, MaxAttempts: maxAttempts}
}

// NewBackOff implements Policy.
func (p ConstantBackoffPolicy) NewBackOff() backoff.BackOff {
	return withMaxRetries(backoff.NewConstantBackOff(p.Interval), p.MaxAttempts)
}

func withMaxRetries(b backoff.BackOff, maxAttempts int) backoff.BackOff {
	if maxAttempts > 0 {
		b = backoff.WithMaxRetries(b, uint64(maxAttempts))
	}
	b.Reset()
	return b
}
