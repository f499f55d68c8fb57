/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"

	"github.com/acronis/go-governor/log"
	"github.com/acronis/go-governor/log/logtest"
	"github.com/acronis/go-governor/ratelimit"
)

func makeTestServer(served *atomic.Int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		served.Inc()
		rw.WriteHeader(http.StatusNoContent)
	}))
}

func doGet(ctx context.Context, c *http.Client, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	return resp.Body.Close()
}

func TestNewRateLimitingRoundTripper(t *testing.T) {
	reg := ratelimit.NewRegistry()
	tests := []struct {
		Name       string
		Registry   *ratelimit.Registry
		Service    string
		Opts       RateLimitingRoundTripperOpts
		WantErrMsg string
	}{
		{Name: "no registry", Service: "svc", WantErrMsg: "registry must be provided"},
		{Name: "empty service", Registry: reg, WantErrMsg: "service must not be empty"},
		{Name: "negative cost", Registry: reg, Service: "svc", Opts: RateLimitingRoundTripperOpts{Cost: -1},
			WantErrMsg: "cost must be positive"},
		{Name: "negative wait timeout", Registry: reg, Service: "svc",
			Opts: RateLimitingRoundTripperOpts{WaitTimeout: -time.Second}, WantErrMsg: "wait timeout must not be negative"},
	}
	for i := range tests {
		tt := tests[i]
		t.Run(tt.Name, func(t *testing.T) {
			_, err := NewRateLimitingRoundTripperWithOpts(http.DefaultTransport, tt.Registry, tt.Service, tt.Opts)
			require.EqualError(t, err, tt.WantErrMsg)
		})
	}

	rt, err := NewRateLimitingRoundTripper(nil, reg, "svc")
	require.NoError(t, err)
	require.Equal(t, DefaultRateLimitingCost, rt.Cost)
	require.Equal(t, DefaultRateLimitingWaitTimeout, rt.WaitTimeout)
	require.Equal(t, http.DefaultTransport, rt.Delegate)
}

func TestRateLimitingRoundTripper(t *testing.T) {
	t.Run("rejects requests over capacity", func(t *testing.T) {
		var served atomic.Int32
		server := makeTestServer(&served)
		defer server.Close()

		reg := ratelimit.NewRegistry()
		require.NoError(t, reg.Configure("api", ratelimit.Config{
			MaxRequests: 2, Window: time.Hour, Strategy: ratelimit.StrategySlidingWindow,
		}))
		logRecorder := logtest.NewRecorder()
		client, err := NewWithOpts(reg, "api", Opts{RateLimiting: RateLimitingRoundTripperOpts{
			WaitTimeout: 50 * time.Millisecond, Logger: logRecorder,
		}})
		require.NoError(t, err)

		require.NoError(t, doGet(context.Background(), client, server.URL))
		require.NoError(t, doGet(context.Background(), client, server.URL))
		err = doGet(context.Background(), client, server.URL+"/third")
		require.Error(t, err)

		var waitErr *RateLimitingWaitError
		require.True(t, errors.As(err, &waitErr))
		require.Equal(t, "api", waitErr.Service)
		require.ErrorIs(t, err, ratelimit.ErrCapacityExceeded)
		require.Equal(t, int32(2), served.Load())

		stats, ok := reg.Stats("api")
		require.True(t, ok)
		require.Equal(t, int64(2), stats.AllowedRequests)

		entry, found := logRecorder.FindEntry("outgoing request is rejected by rate limiting")
		require.True(t, found)
		require.Equal(t, log.LevelWarn, entry.Level)
		urlField, found := entry.FindField("url")
		require.True(t, found)
		require.True(t, strings.HasSuffix(string(urlField.Bytes), "/third"))
	})

	t.Run("waits for capacity", func(t *testing.T) {
		var served atomic.Int32
		server := makeTestServer(&served)
		defer server.Close()

		reg := ratelimit.NewRegistryWithOpts(ratelimit.RegistryOpts{PollInterval: 5 * time.Millisecond})
		require.NoError(t, reg.Configure("api", ratelimit.Config{
			MaxRequests: 10, Window: time.Second, BurstLimit: 1,
		}))
		client := Must(reg, "api")

		start := time.Now()
		for i := 0; i < 3; i++ {
			require.NoError(t, doGet(context.Background(), client, server.URL))
		}
		require.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
		require.Equal(t, int32(3), served.Load())
	})

	t.Run("service and cost from context", func(t *testing.T) {
		var served atomic.Int32
		server := makeTestServer(&served)
		defer server.Close()

		reg := ratelimit.NewRegistry()
		require.NoError(t, reg.Configure("search", ratelimit.Config{
			MaxRequests: 5, Window: time.Hour, Strategy: ratelimit.StrategyFixedWindow,
		}))
		client, err := NewWithOpts(reg, "api", Opts{RateLimiting: RateLimitingRoundTripperOpts{WaitTimeout: time.Millisecond}})
		require.NoError(t, err)

		// "api" is not configured, so its requests are not limited.
		for i := 0; i < 10; i++ {
			require.NoError(t, doGet(context.Background(), client, server.URL))
		}

		ctx := NewContextWithCost(NewContextWithService(context.Background(), "search"), 3)
		require.NoError(t, doGet(ctx, client, server.URL))
		require.ErrorIs(t, doGet(ctx, client, server.URL), ratelimit.ErrCapacityExceeded)
		require.NoError(t, doGet(NewContextWithService(context.Background(), "search"), client, server.URL))
		require.Equal(t, int32(12), served.Load())
	})

	t.Run("context canceled", func(t *testing.T) {
		var served atomic.Int32
		server := makeTestServer(&served)
		defer server.Close()

		reg := ratelimit.NewRegistry()
		require.NoError(t, reg.Configure("api", ratelimit.Config{MaxRequests: 1, Window: time.Hour}))
		client := MustWithOpts(reg, "api", Opts{RateLimiting: RateLimitingRoundTripperOpts{WaitTimeout: time.Minute}})
		require.NoError(t, doGet(context.Background(), client, server.URL))

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := doGet(ctx, client, server.URL)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		require.False(t, errors.Is(err, ratelimit.ErrCapacityExceeded))
		require.Equal(t, int32(1), served.Load())
	})
}
