package errorhandler

import (
	"errors"
	"fmt"

	errorskg "github.com/sweetpotato0/ai-research/errors"
	"github.com/sweetpotato0/ai-research/middleware"
)

// ErrorHandlerFunc handles errors
type ErrorHandlerFunc func(*middleware.Context, error) error

// ErrorHandler normalises errors from the rest of the chain. Panics are
// recovered and reported as errors.
type ErrorHandler struct {
	handler ErrorHandlerFunc
}

// NewErrorHandler creates an error handling middleware. A nil handler uses
// WrapBackend.
func NewErrorHandler(handler ErrorHandlerFunc) *ErrorHandler {
	if handler == nil {
		handler = WrapBackend
	}
	return &ErrorHandler{handler: handler}
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute handles errors from downstream middlewares
func (m *ErrorHandler) Execute(ctx *middleware.Context, next middleware.Handler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = m.handler(ctx, fmt.Errorf("panic: %v", r))
		}
	}()

	err = next(ctx)
	if err != nil {
		return m.handler(ctx, err)
	}
	return nil
}

// WrapBackend reports every failure as a BackendError for the serving
// provider, leaving parse and validation errors in their own category.
func WrapBackend(ctx *middleware.Context, err error) error {
	if errors.Is(err, errorskg.ErrParse) || errors.Is(err, errorskg.ErrValidation) {
		return err
	}
	name := ctx.Backend
	if name == "" {
		name = "llm"
	}
	return errorskg.Backend(name, ctx.Stage, err)
}
