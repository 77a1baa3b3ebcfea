package search

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-research/pkg/logging"
)

// mockBackend is a configurable Backend for gateway tests.
type mockBackend struct {
	name       string
	configured bool
	results    []Result
	err        error
	panicMsg   string
	delay      time.Duration

	mu    sync.Mutex
	calls int
}

func (m *mockBackend) Name() string     { return m.name }
func (m *mockBackend) Configured() bool { return m.configured }

func (m *mockBackend) Search(ctx context.Context, _ string, _ int) ([]Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	return m.results, m.err
}

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func threeResults(tag string) []Result {
	out := make([]Result, 3)
	for i := range out {
		out[i] = Result{
			Title:         fmt.Sprintf("result %d", i),
			Snippet:       "snippet",
			URL:           fmt.Sprintf("https://example.com/%d", i),
			SourceBackend: tag,
		}
	}
	return out
}

func newTestGateway(backends ...Backend) *Gateway {
	return NewGateway(backends, WithLogger(logging.Discard()), WithMaxResults(10))
}

func TestGatewayFailsOverInOrder(t *testing.T) {
	a := &mockBackend{name: "A", configured: true, err: errors.New("503 upstream")}
	b := &mockBackend{name: "B", configured: true, results: threeResults("something-else")}
	c := &mockBackend{name: "C", configured: true, results: threeResults("C")}

	got := newTestGateway(a, b, c).Search(context.Background(), "AI in healthcare")

	require.Len(t, got, 3)
	for _, r := range got {
		assert.Equal(t, "B", r.SourceBackend)
		assert.False(t, r.Timestamp.IsZero())
	}
	assert.Equal(t, 1, a.callCount())
	assert.Equal(t, 1, b.callCount())
	assert.Equal(t, 0, c.callCount(), "C must never be invoked")
}

func TestGatewaySkipsUnconfiguredBackends(t *testing.T) {
	premium := &mockBackend{name: "premium", configured: false, results: threeResults("premium")}
	free := &mockBackend{name: "free", configured: true, results: threeResults("free")}

	got := newTestGateway(premium, free).Search(context.Background(), "q")

	require.Len(t, got, 3)
	assert.Equal(t, 0, premium.callCount())
	assert.Equal(t, "free", got[0].SourceBackend)
}

func TestGatewayAllFailReturnsEmpty(t *testing.T) {
	a := &mockBackend{name: "A", configured: true, err: errors.New("boom")}
	b := &mockBackend{name: "B", configured: true}
	c := &mockBackend{name: "C", configured: true, panicMsg: "nil map"}

	got := newTestGateway(a, b, c).Search(context.Background(), "q")

	require.NotNil(t, got)
	assert.Empty(t, got)
	assert.Equal(t, 1, c.callCount())
}

func TestGatewayTreatsUnparseableResultsAsFailure(t *testing.T) {
	broken := &mockBackend{name: "broken", configured: true, results: []Result{{Title: "no url"}, {Snippet: "x"}}}
	good := &mockBackend{name: "good", configured: true, results: threeResults("good")}

	got := newTestGateway(broken, good).Search(context.Background(), "q")

	require.Len(t, got, 3)
	assert.Equal(t, "good", got[0].SourceBackend)
}

func TestGatewayTimesOutSlowBackends(t *testing.T) {
	slow := &mockBackend{name: "slow", configured: true, delay: time.Second, results: threeResults("slow")}
	fast := &mockBackend{name: "fast", configured: true, results: threeResults("fast")}

	g := NewGateway([]Backend{slow, fast}, WithLogger(logging.Discard()), WithTimeout(10*time.Millisecond))
	got := g.Search(context.Background(), "q")

	require.Len(t, got, 3)
	assert.Equal(t, "fast", got[0].SourceBackend)
}

func TestGatewayNormalizesAndCaps(t *testing.T) {
	fixed := time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)
	b := &mockBackend{name: "wiki", configured: true, results: []Result{
		{Title: "  Padded  ", URL: " https://a.example ", Snippet: "  s  "},
		{URL: "https://b.example"},
		{URL: "https://c.example"},
	}}
	g := NewGateway([]Backend{b}, WithLogger(logging.Discard()), WithMaxResults(2), WithClock(func() time.Time { return fixed }))

	got := g.Search(context.Background(), "q")

	require.Len(t, got, 2)
	assert.Equal(t, "Padded", got[0].Title)
	assert.Equal(t, "https://a.example", got[0].URL)
	assert.Equal(t, "s", got[0].Snippet)
	assert.Equal(t, fixed, got[0].Timestamp)
	assert.Equal(t, "https://b.example", got[1].Title, "missing title falls back to URL")
}

func TestGatewayCachesNonEmptyResults(t *testing.T) {
	b := &mockBackend{name: "B", configured: true, results: threeResults("B")}
	g := NewGateway([]Backend{b}, WithLogger(logging.Discard()), WithCache(time.Minute))

	first := g.Search(context.Background(), "cached query")
	second := g.Search(context.Background(), "cached query")

	assert.Equal(t, first, second)
	assert.Equal(t, 1, b.callCount())

	empty := &mockBackend{name: "E", configured: true}
	g = NewGateway([]Backend{empty}, WithLogger(logging.Discard()), WithCache(time.Minute))
	g.Search(context.Background(), "nothing")
	g.Search(context.Background(), "nothing")
	assert.Equal(t, 2, empty.callCount(), "empty results are not cached")
}

func TestGatewayEmptyQuery(t *testing.T) {
	b := &mockBackend{name: "B", configured: true, results: threeResults("B")}
	assert.Empty(t, newTestGateway(b).Search(context.Background(), "   "))
	assert.Equal(t, 0, b.callCount())
}

func TestGatewayBackendsListing(t *testing.T) {
	g := newTestGateway(
		&mockBackend{name: "serper"},
		BackendFunc{ID: "wikipedia", Fn: func(context.Context, string, int) ([]Result, error) { return nil, nil }},
	)
	assert.Equal(t, []string{"serper (unconfigured)", "wikipedia"}, g.Backends())
}
