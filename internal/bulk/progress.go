package bulk

import (
	"fmt"
	"sync"
	"time"
)

// estimator drives the cosmetic per-item progress while the single batch
// call is in flight. It advances Current toward Total-1 on a fixed cadence
// and never reaches Total: the authoritative count is only written at
// settlement. Each run owns exactly one estimator; stop is idempotent and
// leaves no timer behind.
type estimator struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

// startEstimator begins the cosmetic tick for the current run and records
// it as the run's estimator.
func (o *Orchestrator) startEstimator() *estimator {
	e := &estimator{
		ticker: time.NewTicker(o.tick),
		done:   make(chan struct{}),
	}

	o.mu.Lock()
	o.est = e
	o.mu.Unlock()

	go func() {
		for {
			select {
			case <-e.done:
				return
			case <-e.ticker.C:
				o.advance(e)
			}
		}
	}()

	return e
}

// retireEstimator detaches and stops the run's estimator. Called on every
// settlement path before the authoritative result is written. A tick that
// already left the ticker's channel can still reach advance afterwards; it
// no longer matches o.est there and is discarded.
func (o *Orchestrator) retireEstimator(e *estimator) {
	o.mu.Lock()
	if o.est == e {
		o.est = nil
	}
	o.mu.Unlock()
	e.stop()
}

// stop halts the tick.
func (e *estimator) stop() {
	e.once.Do(func() {
		e.ticker.Stop()
		close(e.done)
	})
}

// advance bumps the cosmetic counter by one, capped at Total-1. Ticks from
// a retired estimator are ignored: the settled counts are never overwritten.
func (o *Orchestrator) advance(e *estimator) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.est != e || o.active == "" {
		return
	}
	if o.progress.Current < o.progress.Total-1 {
		o.progress.Current++
		o.progress.Status = fmt.Sprintf("Processing %d of %d...", o.progress.Current, o.progress.Total)
	}
}
