package limiter

import (
	"time"

	"github.com/sweetpotato0/ai-research/middleware"
	"github.com/sweetpotato0/ai-research/ratelimit"
)

// MetadataWait is the metadata key holding how long the call waited for budget.
const MetadataWait = "ratelimit_wait"

// RateLimiter gates each call on a shared sliding window. It waits rather
// than rejecting, so no call is dropped.
type RateLimiter struct {
	limiter ratelimit.Limiter
}

// NewRateLimiter creates a rate limiting middleware around l.
func NewRateLimiter(l ratelimit.Limiter) *RateLimiter {
	return &RateLimiter{limiter: l}
}

// Name returns the middleware name
func (m *RateLimiter) Name() string {
	return "RateLimiter"
}

// Execute acquires a slot, then continues the chain
func (m *RateLimiter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if m.limiter != nil {
		start := time.Now()
		if err := m.limiter.Acquire(ctx.Context()); err != nil {
			return err
		}
		if ctx.Metadata != nil {
			ctx.Metadata[MetadataWait] = time.Since(start)
		}
	}
	return next(ctx)
}
