/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/atomic"

	"github.com/acronis/go-governor/log"
	"github.com/acronis/go-governor/log/logtest"
)

type RegistryTestSuite struct {
	suite.Suite
	clock *testClock
	reg   *Registry
}

func TestRegistry(t *testing.T) {
	suite.Run(t, new(RegistryTestSuite))
}

func (ts *RegistryTestSuite) SetupTest() {
	ts.clock = newTestClock()
	ts.reg = NewRegistryWithOpts(RegistryOpts{Clock: ts.clock.Now})
}

func (ts *RegistryTestSuite) TestEndToEndTokenBucket() {
	ts.Require().NoError(ts.reg.Configure("svc", Config{MaxRequests: 3, Window: 10 * time.Second}))

	ts.True(ts.reg.IsAllowed("svc"))
	ts.True(ts.reg.IsAllowed("svc"))
	ts.True(ts.reg.IsAllowed("svc"))
	ts.False(ts.reg.IsAllowed("svc"))
	ts.InDelta(3.33, ts.reg.WaitTime("svc").Seconds(), 0.01)

	ts.clock.Advance(4 * time.Second)
	ts.True(ts.reg.IsAllowed("svc"))

	stats, ok := ts.reg.Stats("svc")
	ts.Require().True(ok)
	ts.Equal(int64(5), stats.TotalRequests)
	ts.Equal(int64(4), stats.AllowedRequests)
	ts.Equal(int64(1), stats.BlockedRequests)
	ts.False(stats.LastBlockedAt.IsZero())
	ts.InDelta(0.2, stats.BlockRate(), 0.0001)
}

func (ts *RegistryTestSuite) TestUnconfiguredServiceIsNotLimited() {
	for i := 0; i < 100; i++ {
		ts.True(ts.reg.IsAllowed("unknown"))
	}
	ts.Equal(time.Duration(0), ts.reg.WaitTime("unknown"))
	ts.True(ts.reg.WaitForCapacity(context.Background(), "unknown", 1, 0))
	_, ok := ts.reg.Stats("unknown")
	ts.False(ok)
	ts.Empty(ts.reg.Services())
}

func (ts *RegistryTestSuite) TestNonPositiveCost() {
	ts.Require().NoError(ts.reg.Configure("svc", Config{MaxRequests: 1, Window: time.Minute}))
	ts.True(ts.reg.IsAllowedN("svc", 0))
	ts.True(ts.reg.IsAllowedN("svc", -1))
	ts.Equal(time.Duration(0), ts.reg.WaitTimeN("svc", 0))
	ts.True(ts.reg.IsAllowed("svc"))
	ts.False(ts.reg.IsAllowed("svc"))
}

func (ts *RegistryTestSuite) TestWaitTimeDoesNotConsume() {
	ts.Require().NoError(ts.reg.Configure("svc", Config{MaxRequests: 1, Window: time.Minute}))
	for i := 0; i < 10; i++ {
		ts.Equal(time.Duration(0), ts.reg.WaitTime("svc"))
	}
	ts.True(ts.reg.IsAllowed("svc"))
	ts.InDelta(float64(time.Minute), float64(ts.reg.WaitTime("svc")), float64(time.Millisecond))

	stats, _ := ts.reg.Stats("svc")
	ts.Equal(int64(1), stats.TotalRequests)
}

func (ts *RegistryTestSuite) TestReconfigureResetsStateAndKeepsStats() {
	ts.Require().NoError(ts.reg.Configure("svc", Config{MaxRequests: 1, Window: time.Minute}))
	ts.True(ts.reg.IsAllowed("svc"))
	ts.False(ts.reg.IsAllowed("svc"))

	ts.Require().NoError(ts.reg.Configure("svc", Config{MaxRequests: 2, Window: time.Minute, Strategy: StrategySlidingWindow}))
	ts.True(ts.reg.IsAllowed("svc"))
	ts.True(ts.reg.IsAllowed("svc"))
	ts.False(ts.reg.IsAllowed("svc"))

	cfg, ok := ts.reg.ServiceConfig("svc")
	ts.Require().True(ok)
	ts.Equal(StrategySlidingWindow, cfg.Strategy)

	stats, _ := ts.reg.Stats("svc")
	ts.Equal(int64(5), stats.TotalRequests)
	ts.Equal(int64(2), stats.BlockedRequests)
}

func (ts *RegistryTestSuite) TestInvalidConfiguration() {
	ts.Require().NoError(ts.reg.Configure("svc", Config{MaxRequests: 1, Window: time.Minute}))

	tests := []struct {
		Name  string
		Cfg   Config
		Field string
	}{
		{Name: "zero max requests", Cfg: Config{Window: time.Second}, Field: "maxRequests"},
		{Name: "negative window", Cfg: Config{MaxRequests: 1, Window: -time.Second}, Field: "window"},
		{Name: "unknown strategy", Cfg: Config{MaxRequests: 1, Window: time.Second, Strategy: "magic"}, Field: "strategy"},
		{Name: "negative burst", Cfg: Config{MaxRequests: 1, Window: time.Second, BurstLimit: -1}, Field: "burstLimit"},
		{Name: "small backoff factor", Cfg: Config{MaxRequests: 1, Window: time.Second, BackoffFactor: 0.5}, Field: "backoffFactor"},
	}
	for _, tt := range tests {
		ts.Run(tt.Name, func() {
			err := ts.reg.Configure("svc", tt.Cfg)
			ts.Require().Error(err)
			ts.True(errors.Is(err, ErrInvalidConfiguration))
			var cfgErr *ConfigurationError
			ts.Require().True(errors.As(err, &cfgErr))
			ts.Equal("svc", cfgErr.Service)
			ts.Equal(tt.Field, cfgErr.Field)
		})
	}

	// The previous configuration stays in effect.
	cfg, _ := ts.reg.ServiceConfig("svc")
	ts.Equal(1, cfg.MaxRequests)
	ts.Equal(time.Minute, cfg.Window)
}

func (ts *RegistryTestSuite) TestApproxSlidingWindowStrategy() {
	ts.Require().NoError(ts.reg.Configure("svc", Config{
		MaxRequests: 2, Window: time.Minute, Strategy: StrategySlidingWindowApprox,
	}))

	ts.True(ts.reg.IsAllowed("svc"))
	ts.True(ts.reg.IsAllowed("svc"))
	ts.False(ts.reg.IsAllowed("svc"))

	cfg, ok := ts.reg.ServiceConfig("svc")
	ts.Require().True(ok)
	ts.Equal(StrategySlidingWindowApprox, cfg.Strategy)
}

func (ts *RegistryTestSuite) TestConfigureAll() {
	err := ts.reg.ConfigureAll(map[string]Config{
		"b": {MaxRequests: 1, Window: time.Second, Strategy: StrategyFixedWindow},
		"a": {MaxRequests: 2, Window: time.Second},
	})
	ts.Require().NoError(err)
	ts.Equal([]string{"a", "b"}, ts.reg.Services())

	err = ts.reg.ConfigureAll(map[string]Config{"c": {MaxRequests: 0, Window: time.Second}})
	ts.ErrorIs(err, ErrInvalidConfiguration)
}

func (ts *RegistryTestSuite) TestResetStatsAndReset() {
	ts.Require().NoError(ts.reg.Configure("svc", Config{MaxRequests: 1, Window: time.Minute}))
	ts.True(ts.reg.IsAllowed("svc"))
	ts.False(ts.reg.IsAllowed("svc"))

	ts.True(ts.reg.ResetStats("svc"))
	stats, _ := ts.reg.Stats("svc")
	ts.Equal(ServiceStats{}, stats)
	ts.False(ts.reg.IsAllowed("svc"))

	ts.True(ts.reg.Reset("svc"))
	ts.True(ts.reg.IsAllowed("svc"))
	stats, _ = ts.reg.Stats("svc")
	ts.Equal(int64(2), stats.TotalRequests)

	ts.False(ts.reg.ResetStats("unknown"))
	ts.False(ts.reg.Reset("unknown"))
}

func (ts *RegistryTestSuite) TestAllStats() {
	ts.Require().NoError(ts.reg.Configure("a", Config{MaxRequests: 1, Window: time.Minute}))
	ts.Require().NoError(ts.reg.Configure("b", Config{MaxRequests: 1, Window: time.Minute}))
	ts.reg.IsAllowed("a")
	ts.reg.IsAllowed("a")

	all := ts.reg.AllStats()
	ts.Len(all, 2)
	ts.Equal(int64(1), all["a"].BlockedRequests)
	ts.Equal(int64(0), all["b"].TotalRequests)
}

func (ts *RegistryTestSuite) TestConcurrentCallersExactlyAvailableSucceed() {
	strategies := []StrategyType{StrategyTokenBucket, StrategySlidingWindow, StrategyFixedWindow}
	for _, strategy := range strategies {
		ts.Run(string(strategy), func() {
			const available = 10
			const callers = 100
			ts.Require().NoError(ts.reg.Configure("svc", Config{MaxRequests: available, Window: time.Minute, Strategy: strategy}))
			ts.Require().True(ts.reg.ResetStats("svc"))

			var allowed atomic.Int32
			var wg sync.WaitGroup
			start := make(chan struct{})
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					<-start
					if ts.reg.IsAllowed("svc") {
						allowed.Inc()
					}
				}()
			}
			close(start)
			wg.Wait()

			ts.Equal(int32(available), allowed.Load())
			stats, _ := ts.reg.Stats("svc")
			ts.Equal(int64(callers), stats.TotalRequests)
			ts.Equal(stats.TotalRequests, stats.AllowedRequests+stats.BlockedRequests)
		})
	}
}

func (ts *RegistryTestSuite) TestLogging() {
	logRecorder := logtest.NewRecorder()
	reg := NewRegistryWithOpts(RegistryOpts{Logger: logRecorder})
	ts.Require().NoError(reg.Configure("svc", Config{MaxRequests: 1, Window: time.Minute}))
	entry, found := logRecorder.FindEntry("rate limit configured")
	ts.Require().True(found)
	ts.Equal(log.LevelDebug, entry.Level)

	reg.ResetStats("svc")
	_, found = logRecorder.FindEntry("rate limit stats reset")
	ts.True(found)
}

func TestRegistry_Metrics(t *testing.T) {
	clock := newTestClock()
	promMetrics := NewPrometheusMetrics()
	reg := NewRegistryWithOpts(RegistryOpts{Clock: clock.Now, MetricsCollector: promMetrics})
	require.NoError(t, reg.Configure("svc", Config{MaxRequests: 2, Window: time.Minute}))

	for i := 0; i < 5; i++ {
		reg.IsAllowed("svc")
	}
	require.Equal(t, 2.0, testutil.ToFloat64(promMetrics.RequestsTotal.WithLabelValues("svc", DecisionAllowed)))
	require.Equal(t, 3.0, testutil.ToFloat64(promMetrics.RequestsTotal.WithLabelValues("svc", DecisionBlocked)))

	require.False(t, reg.WaitForCapacity(context.Background(), "svc", 3, time.Second))
	require.Equal(t, 1, testutil.CollectAndCount(promMetrics.WaitDuration))
}
