package limiter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sweetpotato0/ai-research/middleware"
	"github.com/sweetpotato0/ai-research/ratelimit"
)

type countingLimiter struct {
	calls int
	err   error
}

func (l *countingLimiter) Acquire(context.Context) error {
	l.calls++
	return l.err
}

func TestRateLimiter(t *testing.T) {
	t.Run("acquires before every call", func(t *testing.T) {
		l := &countingLimiter{}
		mw := NewRateLimiter(l)

		for i := 0; i < 3; i++ {
			ctx := middleware.NewContext(context.Background())
			if err := mw.Execute(ctx, func(c *middleware.Context) error { return nil }); err != nil {
				t.Fatalf("request %d failed: %v", i, err)
			}
			if _, ok := ctx.Metadata[MetadataWait]; !ok {
				t.Errorf("request %d: wait not recorded", i)
			}
		}
		if l.calls != 3 {
			t.Errorf("expected 3 acquisitions, got %d", l.calls)
		}
	})

	t.Run("acquire error stops the call", func(t *testing.T) {
		l := &countingLimiter{err: context.Canceled}
		mw := NewRateLimiter(l)

		called := false
		err := mw.Execute(middleware.NewContext(context.Background()), func(c *middleware.Context) error {
			called = true
			return nil
		})
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if called {
			t.Error("provider should not be called without budget")
		}
	})

	t.Run("shares one window across calls", func(t *testing.T) {
		w := ratelimit.NewWindow(2, time.Hour)
		mw := NewRateLimiter(w)
		for i := 0; i < 2; i++ {
			mw.Execute(middleware.NewContext(context.Background()), func(c *middleware.Context) error { return nil })
		}
		used, limit := w.Stats()
		if used != 2 || limit != 2 {
			t.Errorf("expected window 2/2, got %d/%d", used, limit)
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		err := mw.Execute(middleware.NewContext(ctx), func(c *middleware.Context) error { return nil })
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected third call to wait until deadline, got %v", err)
		}
	})

	t.Run("nil limiter passes through", func(t *testing.T) {
		mw := NewRateLimiter(nil)
		if err := mw.Execute(middleware.NewContext(context.Background()), func(c *middleware.Context) error { return nil }); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
