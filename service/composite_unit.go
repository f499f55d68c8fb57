/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"strings"
	"sync"
)

// CompositeUnit runs several units as one.
type CompositeUnit struct {
	Units []Unit
}

// NewCompositeUnit creates a new composite unit.
func NewCompositeUnit(units ...Unit) *CompositeUnit {
	return &CompositeUnit{Units: units}
}

// Start starts all units concurrently and blocks until all their Start methods return.
//
// If any unit reports a fatal error, all units are stopped non-gracefully
// and a single *CompositeUnitError with all collected errors is sent to fatalError.
func (cu *CompositeUnit) Start(fatalError chan<- error) {
	unitErrs := make([]chan error, len(cu.Units))
	failed := make(chan struct{}, len(cu.Units))
	var wg sync.WaitGroup
	for i, unit := range cu.Units {
		unitErrs[i] = make(chan error, 1)
		wg.Add(1)
		go func(unit Unit, errs chan error) {
			defer wg.Done()
			unit.Start(errs)
			if len(errs) != 0 {
				failed <- struct{}{}
			}
		}(unit, unitErrs[i])
	}

	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	select {
	case <-allDone:
		if len(failed) == 0 {
			return
		}
	case <-failed:
	}

	stopErr := cu.Stop(false)

	var errs []error
	for _, unitErr := range unitErrs {
		select {
		case err := <-unitErr:
			errs = append(errs, err)
		default:
		}
	}
	if stopErr != nil {
		errs = append(errs, stopErr.(*CompositeUnitError).UnitErrors...)
	}
	if len(errs) > 0 {
		fatalError <- &CompositeUnitError{UnitErrors: errs}
	}
}

// Stop stops all units concurrently and returns *CompositeUnitError if any of them failed to stop.
func (cu *CompositeUnit) Stop(gracefully bool) error {
	var mu sync.Mutex
	var errs []error
	var wg sync.WaitGroup
	for _, unit := range cu.Units {
		wg.Add(1)
		go func(unit Unit) {
			defer wg.Done()
			if err := unit.Stop(gracefully); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(unit)
	}
	wg.Wait()
	if len(errs) > 0 {
		return &CompositeUnitError{UnitErrors: errs}
	}
	return nil
}

// MustRegisterMetrics registers metrics of all units that implement MetricsRegisterer.
func (cu *CompositeUnit) MustRegisterMetrics() {
	for _, unit := range cu.Units {
		if mr, ok := unit.(MetricsRegisterer); ok {
			mr.MustRegisterMetrics()
		}
	}
}

// UnregisterMetrics unregisters metrics of all units that implement MetricsRegisterer.
func (cu *CompositeUnit) UnregisterMetrics() {
	for _, unit := range cu.Units {
		if mr, ok := unit.(MetricsRegisterer); ok {
			mr.UnregisterMetrics()
		}
	}
}

// CompositeUnitError contains errors of the units of CompositeUnit.
type CompositeUnitError struct {
	UnitErrors []error
}

// Error joins messages of all unit errors.
func (cue *CompositeUnitError) Error() string {
	msgs := make([]string, 0, len(cue.UnitErrors))
	for _, err := range cue.UnitErrors {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Unwrap returns errors of the units, so errors.Is and errors.As can look into them.
func (cue *CompositeUnitError) Unwrap() []error {
	return cue.UnitErrors
}
