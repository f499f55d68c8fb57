/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-governor/log"
	"github.com/acronis/go-governor/log/logtest"
)

var errTransient = errors.New("connection refused")

func TestDo(t *testing.T) {
	t.Run("succeeds after retries", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5), func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return errTransient
			}
			return nil
		})
		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("gives up after max attempts", func(t *testing.T) {
		calls := 0
		err := Do(context.Background(), NewExponentialBackoffPolicy(time.Millisecond, 2), func(ctx context.Context) error {
			calls++
			return errTransient
		})
		require.ErrorIs(t, err, errTransient)
		require.Equal(t, 3, calls)
	})

	t.Run("non-retryable error", func(t *testing.T) {
		permanentErr := errors.New("wrong password")
		calls := 0
		err := DoWithOpts(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5), func(ctx context.Context) error {
			calls++
			return permanentErr
		}, DoOpts{IsRetryable: func(err error) bool { return !errors.Is(err, permanentErr) }})
		require.ErrorIs(t, err, permanentErr)
		require.Equal(t, 1, calls)
	})

	t.Run("context is done", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		err := Do(ctx, NewConstantBackoffPolicy(10*time.Millisecond, 0), func(ctx context.Context) error {
			return errTransient
		})
		require.Error(t, err)
		require.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	})

	t.Run("failed attempts are logged", func(t *testing.T) {
		logRecorder := logtest.NewRecorder()
		calls := 0
		err := DoWithOpts(context.Background(), NewConstantBackoffPolicy(time.Millisecond, 5), func(ctx context.Context) error {
			calls++
			if calls == 1 {
				return errTransient
			}
			return nil
		}, DoOpts{Logger: logRecorder, Operation: "redis_ping"})
		require.NoError(t, err)

		entry, found := logRecorder.FindEntry("attempt failed, retrying")
		require.True(t, found)
		require.Equal(t, log.LevelWarn, entry.Level)
		op, found := entry.StringField("operation")
		require.True(t, found)
		require.Equal(t, "redis_ping", op)
		attempt, found := entry.IntField("attempt")
		require.True(t, found)
		require.Equal(t, int64(1), attempt)
	})

	t.Run("policy func", func(t *testing.T) {
		calls := 0
		p := PolicyFunc(func() backoff.BackOff { return &backoff.StopBackOff{} })
		err := Do(context.Background(), p, func(ctx context.Context) error {
			calls++
			return errTransient
		})
		require.ErrorIs(t, err, errTransient)
		require.Equal(t, 1, calls)
	})
}

func TestExponentialBackoffPolicy(t *testing.T) {
	b := ExponentialBackoffPolicy{InitialInterval: time.Second, MaxInterval: 2 * time.Second}.NewBackOff()
	for i := 0; i < 10; i++ {
		d := b.NextBackOff()
		require.NotEqual(t, backoff.Stop, d)
		require.LessOrEqual(t, d, 3*time.Second) // MaxInterval plus randomization
	}
}
