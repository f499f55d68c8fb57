/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package ratelimit provides per-service admission control for calls to quota-limited external services.
//
// A Registry holds one configured Strategy per named service together with usage statistics.
// Callers register a configuration for each service once (usually at startup) and then guard
// every outgoing call either with the non-blocking IsAllowed check or with WaitForCapacity,
// which polls until capacity is available or the timeout elapses.
// A negative result means "retry later", it is never an error.
// Services that were not configured are always allowed.
//
// Supported algorithms:
//   - token_bucket: capacity refilled continuously at MaxRequests/Window tokens per second (default).
//   - sliding_window: exact trailing-window counter, never admits more than MaxRequests in any Window.
//   - fixed_window: counter per time-aligned bucket. It is the cheapest algorithm, but up to
//     2*MaxRequests may be admitted across a bucket boundary. Use sliding_window when a hard bound is needed.
//   - leaky_bucket: GCRA (Generic Cell Rate Algorithm).
//   - sliding_window_approx: two-window weighted counter with O(1) memory.
package ratelimit
