/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"

	"github.com/acronis/go-governor/log"
	"github.com/acronis/go-governor/retry"
)

const connectRetryInitialInterval = 100 * time.Millisecond

// Connect creates a Redis client and checks the connection with PING,
// making up to cfg.ConnectAttempts attempts with exponential backoff.
// The client is closed if the connection can't be established.
func Connect(ctx context.Context, cfg *Config, logger log.FieldLogger) (*redis.Client, error) {
	if logger == nil {
		logger = log.NewDisabledLogger()
	}
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	policy := retry.PolicyFunc(func() backoff.BackOff {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = connectRetryInitialInterval
		eb.MaxElapsedTime = 0
		retries := cfg.ConnectAttempts - 1
		if retries < 0 {
			retries = 0
		}
		return backoff.WithMaxRetries(eb, uint64(retries))
	})
	err := retry.DoWithOpts(ctx, policy, func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}, retry.DoOpts{Logger: logger.With(log.String("addr", cfg.Addr)), Operation: "redis_ping"})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis %s: %w", cfg.Addr, err)
	}
	logger.Info("connected to redis", log.String("addr", cfg.Addr), log.Int("db", cfg.DB))
	return client, nil
}
