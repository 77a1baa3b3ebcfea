package middleware

import (
	"context"
	"time"
)

// Context carries one reasoning-backend call through the middleware chain
type Context struct {
	// Stage names the pipeline stage issuing the call
	Stage string

	// Tier is the requested model tier ("main" or "lightweight")
	Tier string

	// Backend is the provider that will serve the call
	Backend string

	// System instruction and user prompt
	System string
	Prompt string

	// MaxTokens bounds the completion length
	MaxTokens int

	// Response text from the provider
	Response string

	// Started is set by the chain before the first middleware runs
	Started time.Time

	// Metadata for passing data between middlewares
	Metadata map[string]any

	// Internal state
	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		Metadata: make(map[string]any),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	if c.context == nil {
		return context.Background()
	}
	return c.context
}

// Middleware defines the interface for middleware components
// Middlewares can intercept and modify a reasoning call before it reaches the provider
type Middleware interface {
	// Name returns the name of the middleware for logging and debugging
	Name() string

	// Execute runs the middleware logic
	// It receives the current context and a next handler to continue the chain
	// Returning error will stop the middleware chain
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// MiddlewareChain represents a sequence of middleware to be executed
type MiddlewareChain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *MiddlewareChain {
	return &MiddlewareChain{
		middlewares: middlewares,
	}
}

// Add appends a middleware to the chain
func (c *MiddlewareChain) Add(m Middleware) *MiddlewareChain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// Names lists the middlewares in execution order
func (c *MiddlewareChain) Names() []string {
	names := make([]string, 0, len(c.middlewares))
	for _, m := range c.middlewares {
		names = append(names, m.Name())
	}
	return names
}

// Execute runs all middlewares in the chain
func (c *MiddlewareChain) Execute(ctx *Context, finalHandler Handler) error {
	if ctx == nil {
		return ErrInvalidContext
	}
	if ctx.Metadata == nil {
		ctx.Metadata = make(map[string]any)
	}
	if ctx.Started.IsZero() {
		ctx.Started = time.Now()
	}
	return c.executeMiddleware(ctx, 0, finalHandler)
}

// executeMiddleware recursively executes middlewares in sequence
func (c *MiddlewareChain) executeMiddleware(ctx *Context, index int, finalHandler Handler) error {
	if index >= len(c.middlewares) {
		// All middlewares executed, call the final handler
		return finalHandler(ctx)
	}

	nextHandler := func(ctx *Context) error {
		return c.executeMiddleware(ctx, index+1, finalHandler)
	}

	return c.middlewares[index].Execute(ctx, nextHandler)
}
