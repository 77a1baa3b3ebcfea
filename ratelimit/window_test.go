package ratelimit

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when Sleep is called.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestWindowBlocksTwentyFirstCallUntilWindowElapses(t *testing.T) {
	clock := newFakeClock()
	start := clock.Now()
	w := NewWindow(20, time.Minute, WithClock(clock))
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		require.NoError(t, w.Acquire(ctx))
		clock.advance(time.Second)
	}
	assert.Empty(t, clock.sleeps, "first 20 calls must not wait")

	require.NoError(t, w.Acquire(ctx))
	require.Len(t, clock.sleeps, 1)
	assert.Equal(t, 40*time.Second, clock.sleeps[0])
	assert.Equal(t, start.Add(time.Minute), clock.Now(), "21st call proceeds exactly one window after the 1st")

	inWindow, limit := w.Stats()
	assert.Equal(t, 20, inWindow)
	assert.Equal(t, 20, limit)
}

func TestWindowNeverDropsCalls(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(3, time.Minute, WithClock(clock))

	for i := 0; i < 10; i++ {
		require.NoError(t, w.Acquire(context.Background()))
	}
	// Calls 4..10 each wait for a full window; 3 per minute means 3 waits of 60s.
	total := time.Duration(0)
	for _, d := range clock.sleeps {
		total += d
	}
	assert.Equal(t, 3*time.Minute, total)
}

func TestWindowHonoursCancellation(t *testing.T) {
	clock := newFakeClock()
	w := NewWindow(1, time.Minute, WithClock(clock))
	require.NoError(t, w.Acquire(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := w.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWindowObserverSeesWaits(t *testing.T) {
	clock := newFakeClock()
	var waits []time.Duration
	w := NewWindow(1, 10*time.Second, WithClock(clock), WithObserver(func(d time.Duration) {
		waits = append(waits, d)
	}))

	require.NoError(t, w.Acquire(context.Background()))
	clock.advance(4 * time.Second)
	require.NoError(t, w.Acquire(context.Background()))

	assert.Equal(t, []time.Duration{6 * time.Second}, waits)
}

func TestWindowConcurrentAcquire(t *testing.T) {
	w := NewWindow(50, time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, w.Acquire(context.Background()))
		}()
	}
	wg.Wait()

	inWindow, _ := w.Stats()
	assert.Equal(t, 50, inWindow)
}

func TestWaitClampsToZero(t *testing.T) {
	now := time.Now()
	assert.Equal(t, time.Duration(0), Wait(now.Add(-2*time.Minute), now, time.Minute))
	assert.Equal(t, 15*time.Second, Wait(now.Add(-45*time.Second), now, time.Minute))
}

func TestNewWindowDefaults(t *testing.T) {
	w := NewWindow(0, 0)
	_, limit := w.Stats()
	assert.Equal(t, DefaultLimit, limit)
	assert.Equal(t, DefaultWindow, w.window)
}

func TestRedisWindow(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	key := "research:test:" + t.Name()
	t.Cleanup(func() {
		client.Del(context.Background(), key)
		_ = client.Close()
	})

	w := NewRedisWindow(client, key, 2, 200*time.Millisecond)
	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, w.Acquire(ctx))
	}
	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
}
