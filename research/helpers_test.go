package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	errorskg "github.com/sweetpotato0/ai-research/errors"
	"github.com/sweetpotato0/ai-research/llm"
	"github.com/sweetpotato0/ai-research/pkg/logging"
	"github.com/sweetpotato0/ai-research/search"
)

var fixedNow = time.Date(2026, 10, 16, 9, 30, 0, 0, time.UTC)

func testOptions(extra ...Option) []Option {
	return append([]Option{
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return fixedNow }),
	}, extra...)
}

// stubLLM answers per stage and records every request.
type stubLLM struct {
	mu       sync.Mutex
	handlers map[string]func(req llm.Request) (string, error)
	requests []llm.Request
}

func newStubLLM() *stubLLM {
	return &stubLLM{handlers: make(map[string]func(llm.Request) (string, error))}
}

func (s *stubLLM) on(stage string, fn func(req llm.Request) (string, error)) *stubLLM {
	s.handlers[stage] = fn
	return s
}

func (s *stubLLM) reply(stage, text string) *stubLLM {
	return s.on(stage, func(llm.Request) (string, error) { return text, nil })
}

func (s *stubLLM) fail(stage string) *stubLLM {
	return s.on(stage, func(llm.Request) (string, error) { return "", backendDown })
}

func (s *stubLLM) Complete(_ context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	fn := s.handlers[req.Stage]
	s.mu.Unlock()
	if fn == nil {
		return "", backendDown
	}
	return fn(req)
}

func (s *stubLLM) calls(stage string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Stage == stage {
			n++
		}
	}
	return n
}

func (s *stubLLM) lastPrompt(stage string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Stage == stage {
			return s.requests[i].Prompt
		}
	}
	return ""
}

var backendDown = errorskg.Backend("stub", "complete", errors.New("HTTP 503"))

// stubSearcher returns canned results per query.
type stubSearcher struct {
	mu      sync.Mutex
	results map[string][]search.Result
	queries []string
}

func (s *stubSearcher) Search(_ context.Context, query string) []search.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries = append(s.queries, query)
	return s.results[query]
}

func result(title, url, snippet string) search.Result {
	return search.Result{Title: title, URL: url, Snippet: snippet, SourceBackend: "stub", Timestamp: fixedNow}
}

func extractionJSON(text string, score float64) string {
	return fmt.Sprintf(`{"extracted_text": %q, "relevance_score": %v}`, text, score)
}

// titleIn extracts the "Source title:" line from an extraction prompt.
func titleIn(prompt string) string {
	for _, line := range strings.Split(prompt, "\n") {
		if t, ok := strings.CutPrefix(line, "Source title: "); ok {
			return t
		}
	}
	return ""
}
