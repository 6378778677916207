package hub

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestThrottleLimitsConcurrency(t *testing.T) {
	throttle := NewThrottle(2, 0)
	ctx := context.Background()

	if err := throttle.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire() error = %v", err)
	}
	if err := throttle.Acquire(ctx); err != nil {
		t.Fatalf("second Acquire() error = %v", err)
	}

	// Pool exhausted: a third acquire must block until a slot frees.
	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := throttle.Acquire(shortCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("third Acquire() error = %v, want deadline exceeded", err)
	}

	throttle.Release()
	if err := throttle.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() after Release() error = %v", err)
	}
}

func TestReleaseDelayedDefersSlot(t *testing.T) {
	throttle := NewThrottle(1, 60*time.Millisecond)
	ctx := context.Background()

	if err := throttle.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	throttle.ReleaseDelayed()

	// Slot is still held during the settling delay.
	shortCtx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	if err := throttle.Acquire(shortCtx); err == nil {
		t.Fatal("Acquire() succeeded during settling delay")
	}

	// And released once the delay elapses.
	longCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()
	if err := throttle.Acquire(longCtx); err != nil {
		t.Fatalf("Acquire() after settling delay error = %v", err)
	}
}

func TestReleaseDelayedWithoutDelayIsImmediate(t *testing.T) {
	throttle := NewThrottle(1, 0)
	ctx := context.Background()

	if err := throttle.Acquire(ctx); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	throttle.ReleaseDelayed()

	shortCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	if err := throttle.Acquire(shortCtx); err != nil {
		t.Fatalf("Acquire() error = %v, want immediate slot", err)
	}
}

func TestAcquireHonoursCancellation(t *testing.T) {
	throttle := NewThrottle(1, 0)
	if err := throttle.Acquire(context.Background()); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := throttle.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Acquire() error = %v, want context.Canceled", err)
	}
}
