/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package cache

import (
	"context"
	"sync"
	"time"

	"github.com/acronis/go-governor/log"
	"github.com/acronis/go-governor/service"
)

// DefaultSweepInterval is the default interval of the background removal of expired entries.
const DefaultSweepInterval = time.Minute

// sweeper owns the goroutine that periodically removes expired entries.
type sweeper struct {
	worker *service.PeriodicWorker

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func newSweeper(sweep func() int, interval time.Duration, logger log.FieldLogger) *sweeper {
	run := service.WorkerFunc(func(ctx context.Context) error {
		if removed := sweep(); removed > 0 {
			logger.Debug("expired cache entries swept", log.Int("removed", removed))
		}
		return nil
	})
	return &sweeper{
		worker: service.NewPeriodicWorkerWithOpts(run, interval, logger, service.PeriodicWorkerOpts{
			Name:         "cache_sweep",
			InitialDelay: interval,
		}),
	}
}

func (sw *sweeper) start() bool {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.cancel != nil {
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	sw.cancel = cancel
	sw.done = make(chan struct{})
	go func(done chan struct{}) {
		defer close(done)
		_ = sw.worker.Run(ctx) // Never returns an error.
	}(sw.done)
	return true
}

func (sw *sweeper) stop() {
	sw.mu.Lock()
	cancel, done := sw.cancel, sw.done
	sw.cancel, sw.done = nil, nil
	sw.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Start launches the background sweep of expired entries. It's a no-op if the sweep is already running.
// Correctness of expiration doesn't depend on the sweep, it only frees memory of entries nobody reads.
func (s *MemoryStore[V]) Start() {
	if s.sweeper.start() {
		s.logger.Debug("cache sweep started")
	}
}

// Close stops the background sweep and waits until it exits. The store stays usable.
func (s *MemoryStore[V]) Close() error {
	s.sweeper.stop()
	return nil
}

// SweepWorker returns the periodic sweep as a worker, so it can be run as a part of service.Unit
// instead of Start/Close.
func (s *MemoryStore[V]) SweepWorker() service.Worker {
	return s.sweeper.worker
}
