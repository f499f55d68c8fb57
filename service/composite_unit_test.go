/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
)

type mockUnit struct {
	name          string
	running       *atomic.Int32
	stop          chan struct{}
	stopWithError bool
	startErr      error

	startCalled               atomic.Int32
	stopCalled                atomic.Int32
	stopGracefullyCalled      atomic.Int32
	mustRegisterMetricsCalled atomic.Int32
	unregisterMetricsCalled   atomic.Int32
}

func newMockUnit(name string, running *atomic.Int32, stopWithError bool) *mockUnit {
	return &mockUnit{name: name, running: running, stop: make(chan struct{}, 1), stopWithError: stopWithError}
}

func (u *mockUnit) Start(fatalError chan<- error) {
	u.startCalled.Inc()
	if u.startErr != nil {
		fatalError <- u.startErr
		return
	}
	u.running.Inc()
	<-u.stop
	u.running.Dec()
}

func (u *mockUnit) Stop(gracefully bool) error {
	u.stopCalled.Inc()
	if gracefully {
		u.stopGracefullyCalled.Inc()
	}
	select {
	case u.stop <- struct{}{}:
	default:
	}
	if u.stopWithError {
		return fmt.Errorf("%s: internal error", u.name)
	}
	return nil
}

func (u *mockUnit) MustRegisterMetrics() { u.mustRegisterMetricsCalled.Inc() }

func (u *mockUnit) UnregisterMetrics() { u.unregisterMetricsCalled.Inc() }

func waitTrue(trueFunc func() bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for !trueFunc() {
		if time.Now().After(deadline) {
			return errors.New("waiting true timed out")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

func makeCompositeUnit(n int, running *atomic.Int32, stopWithError func(index int) bool) *CompositeUnit {
	var units []Unit
	for i := 0; i < n; i++ {
		units = append(units, newMockUnit(fmt.Sprintf("unit#%d", i), running, stopWithError != nil && stopWithError(i)))
	}
	return NewCompositeUnit(units...)
}

func TestCompositeUnit_StartAndStop(t *testing.T) {
	t.Run("stop without errors", func(t *testing.T) {
		const unitsNum = 20
		var running atomic.Int32
		cu := makeCompositeUnit(unitsNum, &running, nil)

		startExit := make(chan struct{})
		go func() {
			defer close(startExit)
			cu.Start(make(chan error, 1))
		}()
		require.NoError(t, waitTrue(func() bool { return running.Load() == unitsNum }, 3*time.Second))

		require.NoError(t, cu.Stop(true))
		require.NoError(t, waitTrue(func() bool { return running.Load() == 0 }, 3*time.Second))
		select {
		case <-startExit:
		case <-time.After(3 * time.Second):
			require.Fail(t, "waiting finish of Start() is timed out")
		}
	})

	t.Run("stop with errors", func(t *testing.T) {
		const unitsNum = 10
		var running atomic.Int32
		cu := makeCompositeUnit(unitsNum, &running, func(i int) bool { return i%2 == 0 })

		go cu.Start(make(chan error, 1))
		require.NoError(t, waitTrue(func() bool { return running.Load() == unitsNum }, 3*time.Second))

		err := cu.Stop(true)
		var cuErr *CompositeUnitError
		require.ErrorAs(t, err, &cuErr)
		require.Len(t, cuErr.UnitErrors, unitsNum/2)
	})

	t.Run("fatal error of one unit stops others", func(t *testing.T) {
		var running atomic.Int32
		healthy := newMockUnit("healthy", &running, false)
		broken := newMockUnit("broken", &running, false)
		broken.startErr = errors.New("listen failed")
		cu := NewCompositeUnit(healthy, broken)

		fatalErr := make(chan error, 1)
		cu.Start(fatalErr)

		err := <-fatalErr
		require.ErrorIs(t, err, broken.startErr)
		require.Equal(t, int32(1), healthy.stopCalled.Load())
		require.Equal(t, int32(0), healthy.stopGracefullyCalled.Load())
	})
}
