package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sweetpotato0/ai-research/config"
	"github.com/sweetpotato0/ai-research/contrib/provider/claude"
	"github.com/sweetpotato0/ai-research/contrib/provider/gemini"
	"github.com/sweetpotato0/ai-research/contrib/provider/openai"
	"github.com/sweetpotato0/ai-research/contrib/search/arxiv"
	"github.com/sweetpotato0/ai-research/contrib/search/duckduckgo"
	"github.com/sweetpotato0/ai-research/contrib/search/googlecse"
	"github.com/sweetpotato0/ai-research/contrib/search/serper"
	"github.com/sweetpotato0/ai-research/contrib/search/tavily"
	"github.com/sweetpotato0/ai-research/contrib/search/wikipedia"
	mongosink "github.com/sweetpotato0/ai-research/contrib/sink/mongo"
	pgsink "github.com/sweetpotato0/ai-research/contrib/sink/postgres"
	"github.com/sweetpotato0/ai-research/contrib/tokenizer/tiktoken"
	"github.com/sweetpotato0/ai-research/llm"
	"github.com/sweetpotato0/ai-research/pkg/logging"
	"github.com/sweetpotato0/ai-research/prompt"
	"github.com/sweetpotato0/ai-research/ratelimit"
	"github.com/sweetpotato0/ai-research/report"
	"github.com/sweetpotato0/ai-research/research"
	"github.com/sweetpotato0/ai-research/search"
)

// stack is everything a command needs to run research, plus what must be
// released afterwards.
type stack struct {
	pipeline *research.Pipeline
	sink     report.Sink
	closers  []func() error
}

func (s *stack) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// build wires providers, the limiter, search backends and the sink from cfg.
// observer may be nil.
func build(ctx context.Context, cfg config.Config, observer research.TraceObserver) (_ *stack, err error) {
	s := &stack{}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()
	logger := logging.WithComponent("cli")

	primary, err := newProvider(ctx, s, cfg.LLM, cfg.LLM.MainModel, cfg.LLM.MainMaxTokens)
	if err != nil {
		return nil, err
	}
	light, err := newProvider(ctx, s, cfg.LLM, cfg.LLM.LightweightModel, cfg.LLM.LightweightMaxTokens)
	if err != nil {
		return nil, err
	}

	limiter, err := newLimiter(s, cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	router, err := llm.NewRouter(
		llm.WithProvider(llm.TierMain, primary),
		llm.WithProvider(llm.TierLightweight, light),
		llm.WithMaxTokens(llm.TierMain, cfg.LLM.MainMaxTokens),
		llm.WithMaxTokens(llm.TierLightweight, cfg.LLM.LightweightMaxTokens),
		llm.WithMiddleware(llm.StandardChain(limiter, logging.WithComponent("llm"), prompt.SystemResearcher)...),
	)
	if err != nil {
		return nil, err
	}
	logger.Debug("reasoning router ready", "provider", cfg.LLM.Provider, "middlewares", router.Middlewares())

	gateway := search.NewGateway(newBackends(cfg.Search),
		search.WithMaxResults(cfg.Search.MaxResults),
		search.WithTimeout(cfg.Search.Timeout),
		search.WithCache(cfg.Search.CacheTTL),
	)
	logger.Info("search backends", "order", gateway.Backends())

	opts := []research.Option{
		research.WithRelevancyThreshold(cfg.Research.RelevancyThreshold),
		research.WithRelevancyFailureScore(cfg.Research.RelevancyFailureScore),
		research.WithNeutralRelevance(cfg.Research.NeutralRelevance),
		research.WithTopKEvidence(cfg.Research.TopKEvidence),
		research.WithWellFormedSkip(cfg.Research.SkipWellFormed),
		research.WithTokenizer(newTokenizer(cfg.Research.Tokenizer, logger)),
	}
	if observer != nil {
		opts = append(opts, research.WithTraceObserver(observer))
	}
	if cfg.Research.PromptsDir != "" {
		prompts := prompt.NewDefaultManager()
		replaced, err := prompts.LoadDir(cfg.Research.PromptsDir)
		if err != nil {
			return nil, err
		}
		logger.Info("prompt templates overridden", "dir", cfg.Research.PromptsDir, "templates", replaced)
		opts = append(opts, research.WithPrompts(prompts))
	}
	s.pipeline, err = research.NewPipeline(router, gateway, opts...)
	if err != nil {
		return nil, err
	}

	s.sink, err = newSink(ctx, s, cfg.Output)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newProvider(ctx context.Context, s *stack, cfg config.LLMConfig, model string, maxTokens int) (llm.Provider, error) {
	var p llm.Provider
	switch cfg.Provider {
	case config.ProviderOpenAI:
		oc := openai.DefaultConfig().WithAPIKey(cfg.APIKey).WithBaseURL(cfg.BaseURL).WithModel(model)
		oc.MaxTokens = maxTokens
		oc.Temperature = cfg.Temperature
		p = openai.New(oc)
	case config.ProviderClaude:
		p = claude.New(&claude.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: cfg.Temperature,
		})
	case config.ProviderGemini:
		g, err := gemini.New(ctx, &gemini.Config{
			APIKey:      cfg.APIKey,
			Model:       model,
			MaxTokens:   maxTokens,
			Temperature: float32(cfg.Temperature),
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, g.Close)
		p = g
	default:
		return nil, fmt.Errorf("unsupported provider %q", cfg.Provider)
	}
	return withTimeout(p, cfg.Timeout), nil
}

// timeoutProvider bounds each provider call. The limiter wait happens
// before the provider is reached and is not counted.
type timeoutProvider struct {
	llm.Provider
	timeout time.Duration
}

func withTimeout(p llm.Provider, d time.Duration) llm.Provider {
	if d <= 0 {
		return p
	}
	return &timeoutProvider{Provider: p, timeout: d}
}

func (p *timeoutProvider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.Provider.Generate(ctx, req)
}

func newLimiter(s *stack, cfg config.RateLimitConfig) (ratelimit.Limiter, error) {
	if cfg.RedisAddr == "" {
		logger := logging.WithComponent("ratelimit")
		var w *ratelimit.Window
		w = ratelimit.NewWindow(cfg.Calls, cfg.Window, ratelimit.WithObserver(func(wait time.Duration) {
			inWindow, limit := w.Stats()
			logger.Info("reasoning call throttled", "wait", wait.Round(time.Millisecond), "in_window", inWindow, "limit", limit, "window", cfg.Window)
		}))
		return w, nil
	}
	if err := config.ValidateRedisConfig(cfg.RedisAddr, cfg.RedisDB, cfg.RedisKey); err != nil {
		return nil, err
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	w := ratelimit.NewRedisWindow(client, cfg.RedisKey, cfg.Calls, cfg.Window)
	s.closers = append(s.closers, w.Close)
	return w, nil
}

// newBackends builds backends in the configured failover order. Backends
// without credentials are kept and reported as unconfigured.
func newBackends(cfg config.SearchConfig) []search.Backend {
	client := &http.Client{Timeout: cfg.Timeout}
	backends := make([]search.Backend, 0, len(cfg.Backends))
	for _, name := range cfg.Backends {
		switch name {
		case "serper":
			backends = append(backends, serper.New(cfg.SerperAPIKey, client))
		case "tavily":
			backends = append(backends, tavily.New(cfg.TavilyAPIKey, client))
		case "googlecse":
			b := googlecse.New(cfg.GoogleAPIKey, cfg.GoogleCSEID)
			b.Client = client
			backends = append(backends, b)
		case "duckduckgo":
			backends = append(backends, duckduckgo.New(client, time.Second))
		case "wikipedia":
			backends = append(backends, wikipedia.New(client, cfg.UserAgent))
		case "arxiv":
			backends = append(backends, arxiv.New(client, cfg.UserAgent))
		}
	}
	return backends
}

func newTokenizer(name string, logger *slog.Logger) prompt.Tokenizer {
	if name == "" || name == "words" {
		return prompt.WordTokenizer{}
	}
	tok, err := tiktoken.NewTiktokenTokenizer(name)
	if err != nil {
		logger.Warn("tokenizer unavailable, counting words instead", "tokenizer", name, "error", err)
		return prompt.WordTokenizer{}
	}
	return tok
}

// newSink builds every configured sink. A single sink is returned as is;
// several are fanned out through report.Multi.
func newSink(ctx context.Context, s *stack, cfg config.OutputConfig) (report.Sink, error) {
	var sinks report.Multi
	for _, name := range cfg.Sinks {
		sink, err := openSink(ctx, s, name, cfg)
		if err != nil {
			return nil, fmt.Errorf("open %s sink: %w", name, err)
		}
		if sink != nil {
			sinks = append(sinks, sink)
		}
	}
	switch len(sinks) {
	case 0:
		return report.Discard, nil
	case 1:
		return sinks[0], nil
	default:
		return sinks, nil
	}
}

// openSink returns nil for "none".
func openSink(ctx context.Context, s *stack, name string, cfg config.OutputConfig) (report.Sink, error) {
	switch name {
	case config.SinkFile:
		return report.NewFileSink(cfg.Dir)
	case config.SinkMongo:
		m, err := mongosink.New(ctx, &mongosink.Config{
			URI:        cfg.MongoURI,
			Database:   cfg.MongoDatabase,
			Collection: cfg.MongoCollection,
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { return m.Close(context.Background()) })
		return m, nil
	case config.SinkPostgres:
		p, err := pgsink.New(ctx, &pgsink.Config{
			DSN:        cfg.PostgresDSN,
			Table:      cfg.PostgresTable,
			AutoCreate: cfg.PostgresAutoCreate,
		})
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, p.Close)
		return p, nil
	case config.SinkNone, "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown sink %q", name)
	}
}

// printTrace writes one line per trace entry.
func printTrace(w io.Writer) research.TraceObserver {
	return func(e research.TraceEntry) {
		status := "ok"
		if e.Fallback {
			status = "fallback:" + e.Reason
		}
		fmt.Fprintf(w, "[%s] %-20s %-8s %s\n", status, e.Stage, e.Duration.Round(time.Millisecond), e.Summary)
	}
}
