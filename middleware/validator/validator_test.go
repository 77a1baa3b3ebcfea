package validator

import (
	"context"
	"errors"
	"testing"

	"github.com/sweetpotato0/ai-research/middleware"
)

func newCtx(prompt string, maxTokens int) *middleware.Context {
	ctx := middleware.NewContext(context.Background())
	ctx.Prompt = prompt
	ctx.MaxTokens = maxTokens
	return ctx
}

func TestRequestValidator(t *testing.T) {
	t.Run("valid request passes through", func(t *testing.T) {
		validator := NewRequestValidator(nil)
		executed := false

		err := validator.Execute(newCtx("plan research on AI", 500), func(c *middleware.Context) error {
			executed = true
			return nil
		})

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if !executed {
			t.Error("handler was not executed")
		}
	})

	t.Run("blank prompt is rejected", func(t *testing.T) {
		validator := NewRequestValidator(nil)
		executed := false

		err := validator.Execute(newCtx("   ", 500), func(c *middleware.Context) error {
			executed = true
			return nil
		})

		if !errors.Is(err, middleware.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
		if executed {
			t.Error("handler should not be executed for invalid input")
		}
	})

	t.Run("non-positive token budget is rejected", func(t *testing.T) {
		err := NewRequestValidator(nil).Execute(newCtx("prompt", 0), func(c *middleware.Context) error { return nil })
		if !errors.Is(err, middleware.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("custom validator is used", func(t *testing.T) {
		validator := NewRequestValidator(func(c *middleware.Context) error {
			if c.Stage == "" {
				return errors.New("stage required")
			}
			return nil
		})
		if err := validator.Execute(newCtx("prompt", 10), func(c *middleware.Context) error { return nil }); err == nil {
			t.Error("expected custom validator error")
		}
	})
}

func TestResponseFilter(t *testing.T) {
	t.Run("trims the response", func(t *testing.T) {
		ctx := newCtx("p", 1)
		err := NewResponseFilter(nil).Execute(ctx, func(c *middleware.Context) error {
			c.Response = "  answer \n"
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if ctx.Response != "answer" {
			t.Errorf("expected trimmed response, got %q", ctx.Response)
		}
	})

	t.Run("blank response is an error", func(t *testing.T) {
		err := NewResponseFilter(nil).Execute(newCtx("p", 1), func(c *middleware.Context) error {
			c.Response = "\n\t"
			return nil
		})
		if !errors.Is(err, middleware.ErrEmptyResponse) {
			t.Errorf("expected ErrEmptyResponse, got %v", err)
		}
	})

	t.Run("upstream errors skip the filter", func(t *testing.T) {
		filtered := false
		boom := errors.New("boom")
		err := NewResponseFilter(func(s string) (string, error) {
			filtered = true
			return s, nil
		}).Execute(newCtx("p", 1), func(c *middleware.Context) error { return boom })
		if err != boom || filtered {
			t.Errorf("expected upstream error without filtering, got %v (filtered=%v)", err, filtered)
		}
	})
}
