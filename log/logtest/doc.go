/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest provides a log.FieldLogger implementation that records entries,
// so tests can assert what the rate limiter and cache components have logged.
package logtest
