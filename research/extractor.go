package research

import (
	"context"
	"strings"

	errorskg "github.com/sweetpotato0/ai-research/errors"
	"github.com/sweetpotato0/ai-research/llm"
	"github.com/sweetpotato0/ai-research/prompt"
	"github.com/sweetpotato0/ai-research/search"
)

// Extractor pulls the relevant part of each search result on the main tier.
type Extractor struct {
	stage
}

// NewExtractor creates an evidence extraction stage.
func NewExtractor(client llm.Client, opts ...Option) *Extractor {
	return newExtractor(client, applyOptions(opts))
}

func newExtractor(client llm.Client, o *Options) *Extractor {
	return &Extractor{stage: newStage(StageExtraction, llm.TierMain, client, o)}
}

type extractionReply struct {
	ExtractedText  string   `json:"extracted_text"`
	RelevanceScore *float64 `json:"relevance_score"`
}

// ExtractAll returns one outcome per result, in input order. A failed item
// keeps the raw snippet with the neutral score; the batch carries on.
func (e *Extractor) ExtractAll(ctx context.Context, query string, focusAreas []string, results []search.Result) []Outcome[Evidence] {
	out := make([]Outcome[Evidence], len(results))
	for i, r := range results {
		out[i] = e.Extract(ctx, query, focusAreas, r)
	}
	return out
}

// Extract processes a single result.
func (e *Extractor) Extract(ctx context.Context, query string, focusAreas []string, r search.Result) Outcome[Evidence] {
	snippet := strings.TrimSpace(r.Snippet)
	if snippet == "" {
		return fallback(e.fallback(r), errorskg.Validation("result %s has an empty snippet", r.URL))
	}

	raw, err := e.complete(ctx, prompt.EvidenceExtraction, map[string]any{
		"Query":      query,
		"FocusAreas": focusAreas,
		"Title":      r.Title,
		"URL":        r.URL,
		"Snippet":    prompt.Clip(e.opts.Tokenizer, snippet, e.opts.Config.SnippetTokens),
	})
	if err != nil {
		return fallback(e.fallback(r), err)
	}
	reply, err := decodeJSON[extractionReply](raw)
	if err != nil {
		return fallback(e.fallback(r), err)
	}
	text := strings.TrimSpace(reply.ExtractedText)
	if text == "" {
		err = errorskg.Validation("empty extracted_text")
		return fallback(e.fallback(r), err)
	}
	if reply.RelevanceScore == nil || *reply.RelevanceScore < 0 || *reply.RelevanceScore > 1 {
		err = errorskg.Validation("relevance_score missing or outside [0,1]")
		return fallback(e.fallback(r), err)
	}

	return success(Evidence{
		Source:          r.URL,
		Title:           r.Title,
		ExtractedText:   text,
		RelevanceScore:  *reply.RelevanceScore,
		OriginalSnippet: r.Snippet,
	})
}

func (e *Extractor) fallback(r search.Result) Evidence {
	return Evidence{
		Source:          r.URL,
		Title:           r.Title,
		ExtractedText:   r.Snippet,
		RelevanceScore:  e.opts.Config.NeutralRelevance,
		OriginalSnippet: r.Snippet,
	}
}
