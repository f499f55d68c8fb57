/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package redisstore

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-governor/config"
	"github.com/acronis/go-governor/log/logtest"
)

func TestConnect(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		mr := miniredis.RunT(t)
		cfg := NewDefaultConfig()
		cfg.Addr = mr.Addr()
		logRecorder := logtest.NewRecorder()

		client, err := Connect(context.Background(), cfg, logRecorder)
		require.NoError(t, err)
		defer func() { require.NoError(t, client.Close()) }()
		require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
		_, found := logRecorder.FindEntry("connected to redis")
		require.True(t, found)
	})

	t.Run("unreachable", func(t *testing.T) {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		addr := mr.Addr()
		mr.Close()

		cfg := NewDefaultConfig()
		cfg.Addr = addr
		cfg.DialTimeout = 100 * time.Millisecond
		cfg.ConnectAttempts = 2
		logRecorder := logtest.NewRecorder()

		_, err = Connect(context.Background(), cfg, logRecorder)
		require.Error(t, err)
		require.Contains(t, err.Error(), "connect to redis "+addr)
		retries := logRecorder.FindAllEntriesByFilter(func(entry logtest.RecordedEntry) bool {
			return entry.Text == "attempt failed, retrying"
		})
		require.Len(t, retries, 1)
	})
}

func TestConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := &Config{}
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString("{}"), config.DataTypeJSON, cfg))
		require.Equal(t, NewDefaultConfig(), cfg)
	})

	t.Run("load", func(t *testing.T) {
		cfgData := bytes.NewBufferString(`
cache:
  redis:
    addr: redis:6380
    password: secret
    db: 2
    dialTimeout: 1s
    poolSize: 50
    connectAttempts: 5
`)
		cfg := &Config{}
		require.NoError(t, config.NewDefaultLoader("").LoadFromReader(cfgData, config.DataTypeYAML, cfg))
		require.Equal(t, &Config{
			Addr:            "redis:6380",
			Password:        "secret",
			DB:              2,
			DialTimeout:     time.Second,
			ReadTimeout:     DefaultReadTimeout,
			WriteTimeout:    DefaultWriteTimeout,
			PoolSize:        50,
			ConnectAttempts: 5,
		}, cfg)
	})

	t.Run("errors", func(t *testing.T) {
		tests := []struct {
			Name        string
			CfgData     string
			ExpectedErr string
		}{
			{"empty addr", "cache:\n  redis:\n    addr: \"\"\n", "cache.redis.addr: cannot be empty"},
			{"negative db", "cache:\n  redis:\n    db: -1\n", "cache.redis.db: must not be negative"},
			{"zero read timeout", "cache:\n  redis:\n    readTimeout: 0s\n", "cache.redis.readTimeout: must be positive"},
			{"zero pool size", "cache:\n  redis:\n    poolSize: 0\n", "cache.redis.poolSize: must be positive"},
			{"zero connect attempts", "cache:\n  redis:\n    connectAttempts: 0\n", "cache.redis.connectAttempts: must be positive"},
		}
		for i := range tests {
			tt := tests[i]
			t.Run(tt.Name, func(t *testing.T) {
				err := config.NewDefaultLoader("").LoadFromReader(bytes.NewBufferString(tt.CfgData), config.DataTypeYAML, &Config{})
				require.EqualError(t, err, tt.ExpectedErr)
			})
		}
	})
}
