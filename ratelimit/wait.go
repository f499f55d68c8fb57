/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package ratelimit

import (
	"context"
	"time"

	"github.com/acronis/go-governor/log"
)

const minPollSleep = time.Millisecond

// WaitForCapacity blocks until a request of the given cost for the service is admitted,
// the timeout elapses or the context is done. It returns true only if capacity was consumed.
//
// Every re-check is a regular admission check and is counted in the service statistics.
// Between re-checks the caller sleeps for the estimated wait time but not longer than the current poll interval,
// the poll interval grows by the service's backoff factor up to RegistryOpts.MaxPollInterval.
// Zero or negative timeout means a single non-blocking check.
// A cost exceeding the capacity of the service fails immediately.
func (r *Registry) WaitForCapacity(ctx context.Context, service string, cost int, timeout time.Duration) bool {
	entry := r.lookup(service)
	if entry == nil || cost <= 0 {
		return true
	}

	startedAt := time.Now()
	if r.IsAllowedN(service, cost) {
		return true
	}
	if timeout <= 0 {
		return false
	}

	entry.mu.Lock()
	factor := entry.cfg.backoffFactor()
	entry.mu.Unlock()

	wait := r.WaitTimeN(service, cost)
	if wait == InfDuration {
		r.logger.Warn("request cost exceeds rate limit capacity",
			log.String("service", service), log.Int("cost", cost))
		r.metricsCollector.ObserveWait(service, time.Since(startedAt), false)
		return false
	}

	timeoutTimer := time.NewTimer(timeout)
	defer timeoutTimer.Stop()

	poll := r.pollInterval
	retryTimer := time.NewTimer(pollSleep(wait, poll))
	defer retryTimer.Stop()

	for {
		select {
		case <-retryTimer.C:
			// Will do another check of the rate limit.
		case <-timeoutTimer.C:
			r.logger.Debug("timed out waiting for rate limit capacity",
				log.String("service", service), log.Duration("timeout", timeout))
			r.metricsCollector.ObserveWait(service, time.Since(startedAt), false)
			return false
		case <-ctx.Done():
			r.metricsCollector.ObserveWait(service, time.Since(startedAt), false)
			return false
		}

		if r.IsAllowedN(service, cost) {
			r.metricsCollector.ObserveWait(service, time.Since(startedAt), true)
			return true
		}

		if wait = r.WaitTimeN(service, cost); wait == InfDuration {
			// The service was re-configured with a smaller capacity.
			r.metricsCollector.ObserveWait(service, time.Since(startedAt), false)
			return false
		}
		poll = time.Duration(float64(poll) * factor)
		if poll > r.maxPollInterval {
			poll = r.maxPollInterval
		}
		retryTimer.Reset(pollSleep(wait, poll))
	}
}

func pollSleep(wait, poll time.Duration) time.Duration {
	sleep := poll
	if wait < sleep {
		sleep = wait
	}
	if sleep < minPollSleep {
		sleep = minPollSleep
	}
	return sleep
}
