/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import "context"

type ctxKey int

const (
	ctxKeyService ctxKey = iota
	ctxKeyCost
)

// NewContextWithService creates a new context with the name of the rate-limited service.
// RateLimitingRoundTripper uses it instead of its own service for requests with this context.
func NewContextWithService(ctx context.Context, service string) context.Context {
	return context.WithValue(ctx, ctxKeyService, service)
}

// GetServiceFromContext extracts the name of the rate-limited service from the context.
func GetServiceFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyService).(string); ok {
		return s
	}
	return ""
}

// NewContextWithCost creates a new context with the number of units the request consumes.
func NewContextWithCost(ctx context.Context, cost int) context.Context {
	return context.WithValue(ctx, ctxKeyCost, cost)
}

// GetCostFromContext extracts the number of units the request consumes from the context.
// It returns 0 if the cost is not set.
func GetCostFromContext(ctx context.Context) int {
	if c, ok := ctx.Value(ctxKeyCost).(int); ok {
		return c
	}
	return 0
}
