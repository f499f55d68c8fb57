/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Guard runs fn only if one request for the service is admitted within the timeout.
// ErrCapacityExceeded (wrapped with the service name) is returned otherwise, fn's error is returned as is.
func Guard(ctx context.Context, reg *Registry, service string, timeout time.Duration, fn func(ctx context.Context) error) error {
	return GuardWithCost(ctx, reg, service, 1, timeout, fn)
}

// GuardWithCost is like Guard but for a request of the given cost.
func GuardWithCost(
	ctx context.Context, reg *Registry, service string, cost int, timeout time.Duration, fn func(ctx context.Context) error,
) error {
	if !reg.WaitForCapacity(ctx, service, cost, timeout) {
		if ctx.Err() != nil {
			return fmt.Errorf("wait for %q capacity: %w", service, ctx.Err())
		}
		return fmt.Errorf("service %q: %w", service, ErrCapacityExceeded)
	}
	return fn(ctx)
}
