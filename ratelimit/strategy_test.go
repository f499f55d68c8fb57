/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

// newTestClock returns a clock that starts at the beginning of an hour, so all windows are aligned.
func newTestClock() *testClock {
	return &testClock{now: time.Now().Truncate(time.Hour).Add(time.Hour)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type TokenBucketTestSuite struct {
	suite.Suite
}

func TestTokenBucket(t *testing.T) {
	suite.Run(t, new(TokenBucketTestSuite))
}

func (ts *TokenBucketTestSuite) TestRateOverWindow() {
	clock := newTestClock()
	tb := NewTokenBucket(3, 10*time.Second, 3)

	for i := 0; i < 3; i++ {
		ts.True(tb.TryConsume(clock.Now(), 1), "request #%d", i+1)
	}
	ts.False(tb.TryConsume(clock.Now(), 1))
	ts.InDelta(float64(10*time.Second/3), float64(tb.TimeUntilAvailable(clock.Now(), 1)), float64(time.Millisecond))

	clock.Advance(4 * time.Second)
	ts.Equal(time.Duration(0), tb.TimeUntilAvailable(clock.Now(), 1))
	ts.True(tb.TryConsume(clock.Now(), 1))
}

func (ts *TokenBucketTestSuite) TestTokensStayWithinCapacity() {
	clock := newTestClock()
	tb := NewTokenBucket(5, time.Second, 5)

	ts.Equal(5.0, tb.Tokens(clock.Now()))
	clock.Advance(time.Hour)
	ts.Equal(5.0, tb.Tokens(clock.Now()))

	for tb.TryConsume(clock.Now(), 1) {
	}
	tokens := tb.Tokens(clock.Now())
	ts.GreaterOrEqual(tokens, 0.0)
	ts.Less(tokens, 1.0)
}

func (ts *TokenBucketTestSuite) TestWaitTimeDecreasesWithoutConsumption() {
	clock := newTestClock()
	tb := NewTokenBucket(2, 10*time.Second, 2)
	ts.True(tb.TryConsume(clock.Now(), 2))

	prev := tb.TimeUntilAvailable(clock.Now(), 1)
	ts.Greater(prev, time.Duration(0))
	for i := 0; i < 4; i++ {
		clock.Advance(time.Second)
		cur := tb.TimeUntilAvailable(clock.Now(), 1)
		ts.Less(cur, prev)
		prev = cur
	}
}

func (ts *TokenBucketTestSuite) TestBurstLimit() {
	clock := newTestClock()
	tb := NewTokenBucket(10, time.Second, 2)
	ts.True(tb.TryConsume(clock.Now(), 1))
	ts.True(tb.TryConsume(clock.Now(), 1))
	ts.False(tb.TryConsume(clock.Now(), 1))
	ts.Equal(2, tb.Capacity())
}

func (ts *TokenBucketTestSuite) TestCostExceedsCapacity() {
	clock := newTestClock()
	tb := NewTokenBucket(3, time.Second, 3)
	ts.False(tb.TryConsume(clock.Now(), 4))
	ts.Equal(InfDuration, tb.TimeUntilAvailable(clock.Now(), 4))
	ts.Equal(3.0, tb.Tokens(clock.Now()))
}

type SlidingWindowTestSuite struct {
	suite.Suite
}

func TestSlidingWindow(t *testing.T) {
	suite.Run(t, new(SlidingWindowTestSuite))
}

func (ts *SlidingWindowTestSuite) TestAdmitAndExpire() {
	clock := newTestClock()
	sw := NewSlidingWindow(3, 10*time.Second)

	for i := 0; i < 3; i++ {
		ts.True(sw.TryConsume(clock.Now(), 1))
		clock.Advance(time.Second)
	}
	ts.False(sw.TryConsume(clock.Now(), 1))
	ts.Equal(3, sw.Len(clock.Now()))
	// The oldest timestamp leaves the window 7 seconds later.
	ts.Equal(7*time.Second, sw.TimeUntilAvailable(clock.Now(), 1))
	// Two units need the two oldest timestamps to leave.
	ts.Equal(8*time.Second, sw.TimeUntilAvailable(clock.Now(), 2))

	clock.Advance(7 * time.Second)
	ts.Equal(time.Duration(0), sw.TimeUntilAvailable(clock.Now(), 1))
	ts.True(sw.TryConsume(clock.Now(), 1))
	ts.False(sw.TryConsume(clock.Now(), 1))
}

func (ts *SlidingWindowTestSuite) TestCost() {
	clock := newTestClock()
	sw := NewSlidingWindow(5, time.Second)
	ts.True(sw.TryConsume(clock.Now(), 3))
	ts.False(sw.TryConsume(clock.Now(), 3))
	ts.True(sw.TryConsume(clock.Now(), 2))
	ts.Equal(InfDuration, sw.TimeUntilAvailable(clock.Now(), 6))
}

func (ts *SlidingWindowTestSuite) TestTrailingWindowNeverExceedsLimit() {
	const maxRequests = 7
	const window = time.Second
	clock := newTestClock()
	sw := NewSlidingWindow(maxRequests, window)
	rnd := rand.New(rand.NewSource(42))

	var admitted []time.Time
	for i := 0; i < 5000; i++ {
		clock.Advance(time.Duration(rnd.Int63n(int64(50 * time.Millisecond))))
		now := clock.Now()
		if sw.TryConsume(now, 1) {
			admitted = append(admitted, now)
		}
		count := 0
		for _, at := range admitted {
			if at.After(now.Add(-window)) {
				count++
			}
		}
		ts.Require().LessOrEqual(count, maxRequests)
	}
	ts.Greater(len(admitted), maxRequests)
}

type FixedWindowTestSuite struct {
	suite.Suite
}

func TestFixedWindow(t *testing.T) {
	suite.Run(t, new(FixedWindowTestSuite))
}

func (ts *FixedWindowTestSuite) TestLimitPerAlignedWindow() {
	clock := newTestClock()
	fw := NewFixedWindow(3, 10*time.Second)

	clock.Advance(2 * time.Second)
	for i := 0; i < 3; i++ {
		ts.True(fw.TryConsume(clock.Now(), 1))
	}
	ts.False(fw.TryConsume(clock.Now(), 1))
	ts.Equal(3, fw.Count(clock.Now()))
	ts.Equal(8*time.Second, fw.TimeUntilAvailable(clock.Now(), 1))

	clock.Advance(8 * time.Second)
	ts.Equal(0, fw.Count(clock.Now()))
	ts.Equal(time.Duration(0), fw.TimeUntilAvailable(clock.Now(), 1))
	ts.True(fw.TryConsume(clock.Now(), 1))
}

func (ts *FixedWindowTestSuite) TestBoundaryDoubleBurst() {
	clock := newTestClock()
	fw := NewFixedWindow(3, 10*time.Second)

	clock.Advance(10*time.Second - 100*time.Millisecond)
	admitted := 0
	for i := 0; i < 3; i++ {
		if fw.TryConsume(clock.Now(), 1) {
			admitted++
		}
	}
	ts.Equal(100*time.Millisecond, fw.TimeUntilAvailable(clock.Now(), 1))

	clock.Advance(100 * time.Millisecond)
	for i := 0; i < 4; i++ {
		if fw.TryConsume(clock.Now(), 1) {
			admitted++
		}
	}
	ts.Equal(6, admitted)
}

func (ts *FixedWindowTestSuite) TestCostExceedsLimit() {
	clock := newTestClock()
	fw := NewFixedWindow(3, time.Second)
	ts.False(fw.TryConsume(clock.Now(), 4))
	ts.Equal(InfDuration, fw.TimeUntilAvailable(clock.Now(), 4))
	ts.True(fw.TryConsume(clock.Now(), 3))
}

func TestApproxSlidingWindow(t *testing.T) {
	clock := newTestClock()
	w, err := NewApproxSlidingWindow(3, time.Minute)
	require.NoError(t, err)

	clock.Advance(time.Second)
	for i := 0; i < 3; i++ {
		require.True(t, w.TryConsume(clock.Now(), 1))
	}
	require.Equal(t, time.Duration(0), w.TimeUntilAvailable(clock.Now(), 1))
	require.False(t, w.TryConsume(clock.Now(), 1))
	require.Equal(t, 59*time.Second, w.TimeUntilAvailable(clock.Now(), 1))
	require.Equal(t, InfDuration, w.TimeUntilAvailable(clock.Now(), 4))

	// Both the current and the previous windows are empty two windows later.
	clock.Advance(2 * time.Minute)
	require.Equal(t, time.Duration(0), w.TimeUntilAvailable(clock.Now(), 1))
	for i := 0; i < 3; i++ {
		require.True(t, w.TryConsume(clock.Now(), 1))
	}
}

func TestLeakyBucket(t *testing.T) {
	lb, err := NewLeakyBucket(2, time.Second, 2)
	require.NoError(t, err)

	require.True(t, lb.TryConsume(time.Now(), 1))
	require.True(t, lb.TryConsume(time.Now(), 1))
	require.False(t, lb.TryConsume(time.Now(), 1))

	wait := lb.TimeUntilAvailable(time.Now(), 1)
	require.Greater(t, wait, time.Duration(0))
	require.LessOrEqual(t, wait, 500*time.Millisecond)
	// Probing doesn't consume capacity.
	require.LessOrEqual(t, lb.TimeUntilAvailable(time.Now(), 1), wait)
	require.Equal(t, InfDuration, lb.TimeUntilAvailable(time.Now(), 3))

	time.Sleep(wait + 50*time.Millisecond)
	require.True(t, lb.TryConsume(time.Now(), 1))
}
