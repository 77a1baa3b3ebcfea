package validator

import (
	"fmt"
	"strings"

	"github.com/sweetpotato0/ai-research/middleware"
)

// ValidatorFunc validates a request before it is sent
type ValidatorFunc func(*middleware.Context) error

// FilterFunc inspects or rewrites the response text
type FilterFunc func(string) (string, error)

// RequestValidator rejects malformed requests before they cost budget
type RequestValidator struct {
	validator ValidatorFunc
}

// NewRequestValidator creates a request validation middleware. A nil
// validator uses ValidateRequest.
func NewRequestValidator(validator ValidatorFunc) *RequestValidator {
	if validator == nil {
		validator = ValidateRequest
	}
	return &RequestValidator{validator: validator}
}

// Name returns the middleware name
func (m *RequestValidator) Name() string {
	return "RequestValidator"
}

// Execute validates the request
func (m *RequestValidator) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if err := m.validator(ctx); err != nil {
		return err
	}
	return next(ctx)
}

// ValidateRequest requires a prompt and a positive token budget.
func ValidateRequest(ctx *middleware.Context) error {
	if strings.TrimSpace(ctx.Prompt) == "" {
		return fmt.Errorf("%w: empty prompt", middleware.ErrInvalidInput)
	}
	if ctx.MaxTokens <= 0 {
		return fmt.Errorf("%w: max tokens must be positive, got %d", middleware.ErrInvalidInput, ctx.MaxTokens)
	}
	return nil
}

// ResponseFilter post-processes the provider response
type ResponseFilter struct {
	filter FilterFunc
}

// NewResponseFilter creates a response filtering middleware. A nil filter
// uses NonEmpty.
func NewResponseFilter(filter FilterFunc) *ResponseFilter {
	if filter == nil {
		filter = NonEmpty
	}
	return &ResponseFilter{filter: filter}
}

// Name returns the middleware name
func (m *ResponseFilter) Name() string {
	return "ResponseFilter"
}

// Execute filters the response
func (m *ResponseFilter) Execute(ctx *middleware.Context, next middleware.Handler) error {
	if err := next(ctx); err != nil {
		return err
	}
	out, err := m.filter(ctx.Response)
	if err != nil {
		return err
	}
	ctx.Response = out
	return nil
}

// NonEmpty trims the response and rejects blank output.
func NonEmpty(resp string) (string, error) {
	resp = strings.TrimSpace(resp)
	if resp == "" {
		return "", middleware.ErrEmptyResponse
	}
	return resp, nil
}
