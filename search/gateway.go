package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	errorskg "github.com/sweetpotato0/ai-research/errors"
	"github.com/sweetpotato0/ai-research/pkg/logging"
	"github.com/sweetpotato0/ai-research/pkg/telemetry"
)

// Gateway tries backends in order and returns the first non-empty result set.
// It is safe for concurrent use by independent runs.
type Gateway struct {
	backends   []Backend
	maxResults int
	timeout    time.Duration
	cache      *gocache.Cache
	now        func() time.Time
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option customises a Gateway.
type Option func(*Gateway)

// WithMaxResults caps the results returned per query.
func WithMaxResults(n int) Option {
	return func(g *Gateway) {
		if n > 0 {
			g.maxResults = n
		}
	}
}

// WithTimeout bounds each backend call.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

// WithCache keeps non-empty result sets per query for ttl.
func WithCache(ttl time.Duration) Option {
	return func(g *Gateway) {
		if ttl > 0 {
			g.cache = gocache.New(ttl, 2*ttl)
		}
	}
}

// WithLogger overrides the gateway logger.
func WithLogger(l *slog.Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithClock overrides the timestamp source for results.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		if now != nil {
			g.now = now
		}
	}
}

// NewGateway creates a gateway over backends in priority order.
func NewGateway(backends []Backend, opts ...Option) *Gateway {
	g := &Gateway{
		backends:   backends,
		maxResults: 5,
		timeout:    15 * time.Second,
		now:        time.Now,
		logger:     logging.WithComponent("search.gateway"),
		tracer:     telemetry.Tracer("github.com/sweetpotato0/ai-research/search"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Backends lists backend names in failover order, marking unconfigured ones.
func (g *Gateway) Backends() []string {
	names := make([]string, 0, len(g.backends))
	for _, b := range g.backends {
		name := b.Name()
		if !b.Configured() {
			name += " (unconfigured)"
		}
		names = append(names, name)
	}
	return names
}

// Search returns results from the first backend that succeeds with at least
// one usable item. Backend failures are logged and swallowed; an empty slice
// means every backend failed or found nothing.
func (g *Gateway) Search(ctx context.Context, query string) []Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Result{}
	}
	if g.cache != nil {
		if cached, ok := g.cache.Get(query); ok {
			return append([]Result(nil), cached.([]Result)...)
		}
	}

	ctx, span := g.tracer.Start(ctx, "search.gateway", trace.WithAttributes(attribute.String("search.query", query)))
	defer span.End()

	for _, b := range g.backends {
		name := b.Name()
		if !b.Configured() {
			g.logger.Debug("search backend skipped", "backend", name, "reason", "missing credentials")
			continue
		}

		start := time.Now()
		raw, err := g.call(ctx, b, query)
		if err != nil {
			g.logger.Warn("search backend failed", "backend", name, "query", query, "duration", time.Since(start), "error", err)
			continue
		}
		results := g.normalize(name, raw)
		if len(results) == 0 {
			g.logger.Info("search backend returned no usable results", "backend", name, "query", query, "raw", len(raw))
			continue
		}

		g.logger.Info("search complete", "backend", name, "query", query, "results", len(results), "duration", time.Since(start))
		span.SetAttributes(attribute.String("search.backend", name), attribute.Int("search.results", len(results)))
		if g.cache != nil {
			g.cache.SetDefault(query, append([]Result(nil), results...))
		}
		return results
	}

	g.logger.Warn("all search backends failed or returned nothing", "query", query)
	span.SetAttributes(attribute.Int("search.results", 0))
	return []Result{}
}

// call runs one backend with the per-backend timeout, turning panics into errors.
func (g *Gateway) call(ctx context.Context, b Backend, query string) (results []Result, err error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			err = errorskg.Backend(b.Name(), "search", fmt.Errorf("panic: %v", r))
		}
	}()

	results, err = b.Search(ctx, query, g.maxResults)
	if err == nil && ctx.Err() != nil {
		err = ctx.Err()
	}
	if err != nil {
		return nil, errorskg.Backend(b.Name(), "search", err)
	}
	return results, nil
}

// normalize trims fields, drops items without a URL, tags the backend and caps the set.
func (g *Gateway) normalize(backend string, raw []Result) []Result {
	out := make([]Result, 0, len(raw))
	for _, r := range raw {
		r.URL = strings.TrimSpace(r.URL)
		if r.URL == "" {
			continue
		}
		r.Title = strings.TrimSpace(r.Title)
		if r.Title == "" {
			r.Title = r.URL
		}
		r.Snippet = strings.TrimSpace(r.Snippet)
		r.SourceBackend = backend
		if r.Timestamp.IsZero() {
			r.Timestamp = g.now()
		}
		out = append(out, r)
		if len(out) == g.maxResults {
			break
		}
	}
	return out
}
