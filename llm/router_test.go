package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errorskg "github.com/sweetpotato0/ai-research/errors"
	"github.com/sweetpotato0/ai-research/message"
	"github.com/sweetpotato0/ai-research/pkg/logging"
	"github.com/sweetpotato0/ai-research/ratelimit"
)

type stubProvider struct {
	name  string
	reply string
	err   error

	mu   sync.Mutex
	reqs []*GenerateRequest
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) Generate(_ context.Context, req *GenerateRequest) (*GenerateResponse, error) {
	p.mu.Lock()
	p.reqs = append(p.reqs, req)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return &GenerateResponse{Message: message.NewMessage(message.RoleAssistant, p.reply)}, nil
}

type countingLimiter struct{ n int }

func (l *countingLimiter) Acquire(context.Context) error {
	l.n++
	return nil
}

func TestRouterRoutesByTier(t *testing.T) {
	main := &stubProvider{name: "main-model", reply: "main answer"}
	light := &stubProvider{name: "light-model", reply: "light answer"}
	r, err := NewRouter(
		WithProvider(TierMain, main),
		WithProvider(TierLightweight, light),
		WithMaxTokens(TierMain, 1500),
		WithMaxTokens(TierLightweight, 300),
	)
	require.NoError(t, err)

	out, err := r.Complete(context.Background(), Request{Tier: TierLightweight, Prompt: "score"})
	require.NoError(t, err)
	assert.Equal(t, "light answer", out)
	require.Len(t, light.reqs, 1)
	assert.Equal(t, 300, light.reqs[0].MaxTokens)

	out, err = r.Complete(context.Background(), Request{Prompt: "plan", MaxTokens: 42})
	require.NoError(t, err)
	assert.Equal(t, "main answer", out)
	require.Len(t, main.reqs, 1)
	assert.Equal(t, 42, main.reqs[0].MaxTokens)
}

func TestRouterLightweightFallsBackToMain(t *testing.T) {
	main := &stubProvider{name: "only", reply: "ok"}
	r, err := NewRouter(WithProvider(TierMain, main))
	require.NoError(t, err)

	_, err = r.Complete(context.Background(), Request{Tier: TierLightweight, Prompt: "x"})
	require.NoError(t, err)
	assert.Len(t, main.reqs, 1)
	assert.Equal(t, 500, main.reqs[0].MaxTokens)
}

func TestNewRouterRequiresMainProvider(t *testing.T) {
	_, err := NewRouter()
	assert.ErrorIs(t, err, errorskg.ErrConfig)
}

func TestRouterUnknownTier(t *testing.T) {
	r, err := NewRouter(WithProvider(TierMain, &stubProvider{name: "m", reply: "x"}))
	require.NoError(t, err)
	_, err = r.Complete(context.Background(), Request{Tier: "premium", Prompt: "x"})
	assert.ErrorIs(t, err, errorskg.ErrValidation)
}

func TestStandardChainAcquiresAndWrapsErrors(t *testing.T) {
	lim := &countingLimiter{}
	failing := &stubProvider{name: "openai", err: errors.New("401 unauthorized")}
	r, err := NewRouter(
		WithProvider(TierMain, failing),
		WithMiddleware(StandardChain(lim, logging.Discard(), "You are a research analyst.")...),
	)
	require.NoError(t, err)

	_, err = r.Complete(context.Background(), Request{Stage: "planning", Prompt: "plan"})
	var be *errorskg.BackendError
	require.ErrorAs(t, err, &be)
	assert.Equal(t, "openai", be.Backend)
	assert.Equal(t, "planning", be.Op)
	assert.Equal(t, 1, lim.n)

	system, _ := message.Split(failing.reqs[0].Messages)
	assert.Equal(t, "You are a research analyst.", system)
	assert.Equal(t, []string{"ErrorHandler", "CallLogger", "ContextEnricher", "RequestValidator", "ResponseFilter", "RateLimiter"}, r.Middlewares())
}

func TestStandardChainSkipsLimiterForInvalidRequests(t *testing.T) {
	lim := &countingLimiter{}
	p := &stubProvider{name: "m", reply: "x"}
	r, err := NewRouter(WithProvider(TierMain, p), WithMiddleware(StandardChain(lim, logging.Discard(), "")...))
	require.NoError(t, err)

	_, err = r.Complete(context.Background(), Request{Prompt: "   "})
	assert.ErrorIs(t, err, errorskg.ErrBackend)
	assert.Equal(t, 0, lim.n)
	assert.Empty(t, p.reqs)
}

func TestStandardChainRejectsBlankResponses(t *testing.T) {
	p := &stubProvider{name: "m", reply: "   "}
	r, err := NewRouter(WithProvider(TierMain, p), WithMiddleware(StandardChain(nil, logging.Discard(), "")...))
	require.NoError(t, err)

	_, err = r.Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, errorskg.ErrBackend)
}

func TestRouterSharesWindowAcrossTiers(t *testing.T) {
	w := ratelimit.NewWindow(3, time.Hour)
	p := &stubProvider{name: "m", reply: "x"}
	r, err := NewRouter(WithProvider(TierMain, p), WithMiddleware(StandardChain(w, logging.Discard(), "")...))
	require.NoError(t, err)

	for _, tier := range []Tier{TierMain, TierLightweight, TierMain} {
		_, err := r.Complete(context.Background(), Request{Tier: tier, Prompt: "x"})
		require.NoError(t, err)
	}
	used, _ := w.Stats()
	assert.Equal(t, 3, used)
}
