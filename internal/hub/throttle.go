package hub

import (
	"context"
	"time"

	"golang.org/x/sync/semaphore"
)

// Throttle bounds concurrent outbound requests to the hub's Maker API.
//
// The embedded hub hardware tolerates only a handful of simultaneous
// requests; every outbound HTTP call must acquire a slot before sending
// and release it when the response (or failure) is in. The semaphore is
// FIFO-fair, so a burst of requests drains in call order once the pool
// saturates.
type Throttle struct {
	sem *semaphore.Weighted

	// releaseDelay defers slot release after a device command, throttling
	// command rate in addition to concurrency. Rapid command bursts can
	// overwhelm automations running on the hub itself.
	releaseDelay time.Duration
}

// NewThrottle creates a throttle with the given pool size.
// releaseDelay of zero disables rate throttling.
func NewThrottle(poolSize int, releaseDelay time.Duration) *Throttle {
	if poolSize < 1 {
		poolSize = 1
	}
	return &Throttle{
		sem:          semaphore.NewWeighted(int64(poolSize)),
		releaseDelay: releaseDelay,
	}
}

// Acquire blocks until a slot is free or the context is cancelled.
func (t *Throttle) Acquire(ctx context.Context) error {
	return t.sem.Acquire(ctx, 1)
}

// Release frees a slot immediately.
func (t *Throttle) Release() {
	t.sem.Release(1)
}

// ReleaseDelayed frees a slot after the configured settling delay.
// With no delay configured it behaves like Release.
func (t *Throttle) ReleaseDelayed() {
	if t.releaseDelay <= 0 {
		t.sem.Release(1)
		return
	}
	time.AfterFunc(t.releaseDelay, func() {
		t.sem.Release(1)
	})
}
