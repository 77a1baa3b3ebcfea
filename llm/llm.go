// Package llm defines the reasoning-backend contract used by the research
// stages and routes calls to a provider by model tier.
package llm

import (
	"context"

	"github.com/sweetpotato0/ai-research/message"
)

// Tier selects model cost and capability.
type Tier string

const (
	TierLightweight Tier = "lightweight"
	TierMain        Tier = "main"
)

// Request is one single-turn completion.
type Request struct {
	// Stage names the caller for logs and errors.
	Stage  string
	Tier   Tier
	System string
	Prompt string
	// MaxTokens of zero means the tier default.
	MaxTokens int
}

// Client is what the stages depend on. Failures are reported as
// *errors.BackendError or wrap errors.ErrParse / errors.ErrValidation.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// GenerateRequest bundles inputs for a non-streaming provider invocation.
type GenerateRequest struct {
	Messages  []*message.Message
	MaxTokens int
}

// GenerateResponse captures the provider reply.
type GenerateResponse struct {
	Message *message.Message
}

// Provider is implemented by each SDK adapter under contrib/provider.
type Provider interface {
	Name() string
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}
