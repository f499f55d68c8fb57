/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package service provides lifecycle primitives for long-running parts of the governor daemon:
// units that can be started and stopped (admin HTTP server, cache sweeps),
// workers run periodically and a signal-driven Service that owns them.
package service

// Unit represents a part of the process with its own lifecycle.
type Unit interface {
	// Start begins the unit's operation. It may return immediately or block for the unit's lifetime.
	// Stop may be called regardless of whether Start succeeded, failed or is still running.
	//
	// The fatalErr channel may be written at most once and must not be used after Start returns.
	Start(fatalErr chan<- error)

	// Stop halts the unit. If gracefully is true, the unit should finish the work in progress first.
	Stop(gracefully bool) error
}

// MetricsRegisterer is an interface for objects that can register their own metrics.
type MetricsRegisterer interface {
	MustRegisterMetrics()
	UnregisterMetrics()
}
