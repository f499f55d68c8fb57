/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-governor/log/logtest"
)

func TestService_Start(t *testing.T) {
	var running atomic.Int32
	unit := newMockUnit("srv", &running, false)
	svc := New(logtest.NewRecorder(), unit)

	done := make(chan error, 1)
	go func() { done <- svc.Start() }()
	require.NoError(t, waitTrue(func() bool { return running.Load() == 1 }, 3*time.Second))
	require.Equal(t, int32(1), unit.mustRegisterMetricsCalled.Load())

	svc.Signals <- os.Interrupt

	require.NoError(t, <-done)
	require.NoError(t, waitTrue(func() bool { return running.Load() == 0 }, 3*time.Second))
	require.Equal(t, int32(1), unit.stopGracefullyCalled.Load())
	require.Equal(t, int32(1), unit.unregisterMetricsCalled.Load())
}

func TestService_StartContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var running atomic.Int32
	unit := newMockUnit("srv", &running, false)
	logRecorder := logtest.NewRecorder()
	svc := New(logRecorder, unit)

	done := make(chan error, 1)
	go func() { done <- svc.StartContext(ctx) }()
	require.NoError(t, waitTrue(func() bool { return running.Load() == 1 }, 3*time.Second))

	cancel()

	require.NoError(t, <-done)
	require.Equal(t, int32(1), unit.stopGracefullyCalled.Load())
	_, found := logRecorder.FindEntry("context is done, stopping service")
	require.True(t, found)
}

func TestService_FatalError(t *testing.T) {
	var running atomic.Int32
	unit := newMockUnit("srv", &running, false)
	unit.startErr = errors.New("boom")

	err := New(logtest.NewRecorder(), unit).Start()
	require.ErrorIs(t, err, unit.startErr)
}
