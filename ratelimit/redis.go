package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindowScript prunes the sorted set, then either records the call
// (returns {1, 0}) or reports the wait in milliseconds (returns {0, wait}).
var slidingWindowScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  redis.call('PEXPIRE', key, window)
  return {1, 0}
end
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local wait = window - (now - tonumber(oldest[2]))
if wait < 1 then wait = 1 end
return {0, wait}
`)

// RedisWindow shares one sliding window across processes through a Redis
// sorted set keyed by call time.
type RedisWindow struct {
	client redis.UniversalClient
	key    string
	limit  int
	window time.Duration
	clock  Clock
}

// NewRedisWindow creates a limiter backed by client. The key namespaces the
// window so several deployments can share one Redis.
func NewRedisWindow(client redis.UniversalClient, key string, limit int, window time.Duration) *RedisWindow {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	if key == "" {
		key = "research:ratelimit"
	}
	return &RedisWindow{client: client, key: key, limit: limit, window: window, clock: realClock{}}
}

// Acquire blocks until the shared window has room, then records the call.
func (w *RedisWindow) Acquire(ctx context.Context) error {
	member := uuid.NewString()
	for {
		now := w.clock.Now().UnixMilli()
		res, err := slidingWindowScript.Run(ctx, w.client, []string{w.key},
			now, w.window.Milliseconds(), w.limit, member).Int64Slice()
		if err != nil {
			return fmt.Errorf("ratelimit: redis window %s: %w", w.key, err)
		}
		if len(res) != 2 {
			return fmt.Errorf("ratelimit: redis window %s: unexpected reply %v", w.key, res)
		}
		if res[0] == 1 {
			return nil
		}
		if err := w.clock.Sleep(ctx, time.Duration(res[1])*time.Millisecond); err != nil {
			return err
		}
	}
}

// Close releases the underlying client.
func (w *RedisWindow) Close() error {
	return w.client.Close()
}
