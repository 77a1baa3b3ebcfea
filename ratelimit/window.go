// Package ratelimit gates reasoning-backend calls with a sliding window.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Default budget for reasoning-backend calls.
const (
	DefaultLimit  = 20
	DefaultWindow = time.Minute
)

// Limiter blocks until a call fits the budget, then records it.
// Acquire returns a non-nil error only when ctx ends first.
type Limiter interface {
	Acquire(ctx context.Context) error
}

// Clock abstracts time for the window so tests can run without sleeping.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Option customises a Window.
type Option func(*Window)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option {
	return func(w *Window) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithObserver registers a callback invoked with every wait the window imposes.
func WithObserver(fn func(wait time.Duration)) Option {
	return func(w *Window) {
		w.onWait = fn
	}
}

// Window is an in-process sliding-window limiter. One Window is shared by
// every run in the process.
type Window struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	calls  []time.Time
	clock  Clock
	onWait func(time.Duration)
}

// NewWindow creates a limiter allowing limit calls per window. Non-positive
// values fall back to 20 calls per minute.
func NewWindow(limit int, window time.Duration, opts ...Option) *Window {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	w := &Window{
		limit:  limit,
		window: window,
		calls:  make([]time.Time, 0, limit),
		clock:  realClock{},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Acquire blocks until fewer than limit calls fall inside the trailing window,
// then records the current time. The lock is never held while sleeping.
func (w *Window) Acquire(ctx context.Context) error {
	for {
		wait, ok := w.tryAcquire()
		if ok {
			return nil
		}
		if w.onWait != nil {
			w.onWait(wait)
		}
		if err := w.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func (w *Window) tryAcquire() (time.Duration, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()
	w.prune(now)
	if len(w.calls) < w.limit {
		w.calls = append(w.calls, now)
		return 0, true
	}
	return Wait(w.calls[0], now, w.window), false
}

// prune drops timestamps at least one window old. Caller holds mu.
func (w *Window) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.calls) && !w.calls[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.calls = append(w.calls[:0], w.calls[i:]...)
	}
}

// Stats reports how many calls are currently inside the window.
func (w *Window) Stats() (inWindow, limit int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(w.clock.Now())
	return len(w.calls), w.limit
}

// Wait returns how long a caller must wait for the oldest call to leave the
// window, clamped to zero.
func Wait(oldest, now time.Time, window time.Duration) time.Duration {
	d := window - now.Sub(oldest)
	if d < 0 {
		return 0
	}
	return d
}
