package llm

import (
	"context"
	"fmt"

	errorskg "github.com/sweetpotato0/ai-research/errors"
	"github.com/sweetpotato0/ai-research/message"
	"github.com/sweetpotato0/ai-research/middleware"
)

// Router serves Client calls from one provider per tier, passing every call
// through the middleware chain first.
type Router struct {
	providers map[Tier]Provider
	maxTokens map[Tier]int
	chain     *middleware.MiddlewareChain
}

// RouterOption customises a Router.
type RouterOption func(*Router)

// WithProvider binds a provider to a tier.
func WithProvider(tier Tier, p Provider) RouterOption {
	return func(r *Router) {
		if p != nil {
			r.providers[tier] = p
		}
	}
}

// WithMaxTokens sets the default completion budget for a tier.
func WithMaxTokens(tier Tier, n int) RouterOption {
	return func(r *Router) {
		if n > 0 {
			r.maxTokens[tier] = n
		}
	}
}

// WithMiddleware appends middlewares, outermost first.
func WithMiddleware(mws ...middleware.Middleware) RouterOption {
	return func(r *Router) {
		for _, m := range mws {
			if m != nil {
				r.chain.Add(m)
			}
		}
	}
}

// NewRouter builds a router. The main tier must have a provider; the
// lightweight tier falls back to it when unset.
func NewRouter(opts ...RouterOption) (*Router, error) {
	r := &Router{
		providers: make(map[Tier]Provider, 2),
		maxTokens: map[Tier]int{TierMain: 2000, TierLightweight: 500},
		chain:     middleware.NewChain(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.providers[TierMain] == nil {
		return nil, errorskg.Config("llm router: no provider for tier %q", TierMain)
	}
	if r.providers[TierLightweight] == nil {
		r.providers[TierLightweight] = r.providers[TierMain]
	}
	return r, nil
}

// Complete implements Client.
func (r *Router) Complete(ctx context.Context, req Request) (string, error) {
	tier := req.Tier
	if tier == "" {
		tier = TierMain
	}
	provider, ok := r.providers[tier]
	if !ok {
		return "", errorskg.Validation("unknown model tier %q", tier)
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = r.maxTokens[tier]
	}

	mctx := middleware.NewContext(ctx)
	mctx.Stage = req.Stage
	mctx.Tier = string(tier)
	mctx.Backend = provider.Name()
	mctx.System = req.System
	mctx.Prompt = req.Prompt
	mctx.MaxTokens = maxTokens

	err := r.chain.Execute(mctx, func(c *middleware.Context) error {
		resp, err := provider.Generate(c.Context(), &GenerateRequest{
			Messages:  message.Prompt(c.System, c.Prompt),
			MaxTokens: c.MaxTokens,
		})
		if err != nil {
			return err
		}
		if resp == nil || resp.Message == nil {
			return fmt.Errorf("%s returned no message", provider.Name())
		}
		c.Response = resp.Message.Content
		return nil
	})
	if err != nil {
		return "", err
	}
	return mctx.Response, nil
}

// Middlewares lists the configured chain, outermost first.
func (r *Router) Middlewares() []string {
	return r.chain.Names()
}
