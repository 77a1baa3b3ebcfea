package logger

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/ai-research/middleware"
	"github.com/sweetpotato0/ai-research/pkg/logging"
)

// CallLogger logs each reasoning call with its stage, tier and latency
type CallLogger struct {
	logger *slog.Logger
}

// NewCallLogger creates a logging middleware. A nil logger uses the shared one.
func NewCallLogger(logger *slog.Logger) *CallLogger {
	if logger == nil {
		logger = logging.WithComponent("llm")
	}
	return &CallLogger{logger: logger}
}

// Name returns the middleware name
func (m *CallLogger) Name() string {
	return "CallLogger"
}

// Execute logs the request and its outcome
func (m *CallLogger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	attrs := []any{
		"stage", ctx.Stage,
		"tier", ctx.Tier,
		"backend", ctx.Backend,
	}
	m.logger.Debug("reasoning call", append(attrs, "prompt_chars", len(ctx.Prompt), "max_tokens", ctx.MaxTokens)...)

	start := time.Now()
	err := next(ctx)
	attrs = append(attrs, "duration", time.Since(start))
	if err != nil {
		m.logger.Warn("reasoning call failed", append(attrs, "error", err)...)
		return err
	}
	m.logger.Info("reasoning call complete", append(attrs, "response_chars", len(ctx.Response))...)
	return nil
}
