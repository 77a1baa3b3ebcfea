package llm

import (
	"log/slog"

	"github.com/sweetpotato0/ai-research/middleware"
	"github.com/sweetpotato0/ai-research/middleware/enricher"
	"github.com/sweetpotato0/ai-research/middleware/errorhandler"
	"github.com/sweetpotato0/ai-research/middleware/limiter"
	"github.com/sweetpotato0/ai-research/middleware/logger"
	"github.com/sweetpotato0/ai-research/middleware/validator"
	"github.com/sweetpotato0/ai-research/ratelimit"
)

// StandardChain returns the middlewares every research call goes through,
// outermost first. The limiter sits directly in front of the provider so a
// slot is only consumed by calls that are actually issued.
func StandardChain(l ratelimit.Limiter, log *slog.Logger, system string) []middleware.Middleware {
	mws := []middleware.Middleware{
		errorhandler.NewErrorHandler(nil),
		logger.NewCallLogger(log),
	}
	if system != "" {
		mws = append(mws, enricher.DefaultSystem(system))
	}
	mws = append(mws,
		validator.NewRequestValidator(nil),
		validator.NewResponseFilter(nil),
		limiter.NewRateLimiter(l),
	)
	return mws
}
