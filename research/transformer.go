package research

import (
	"context"
	"strings"

	errorskg "github.com/sweetpotato0/ai-research/errors"
	"github.com/sweetpotato0/ai-research/llm"
	"github.com/sweetpotato0/ai-research/prompt"
)

var researchIndicators = []string{
	"analyze", "evaluate", "compare", "examine",
	"investigate", "research", "study", "assess",
	"implications", "impact", "effects", "benefits",
	"risks", "challenges", "advantages", "disadvantages",
}

// focusKeywords maps a keyword to the focus it implies, checked in order.
var focusKeywords = []struct{ keyword, focus string }{
	{"risk", "risk analysis"},
	{"benefit", "benefits assessment"},
	{"impact", "impact analysis"},
	{"compare", "comparative analysis"},
	{"future", "future implications"},
	{"ethical", "ethical considerations"},
	{"technical", "technical analysis"},
	{"economic", "economic impact"},
}

// Transformer rewrites a raw query into a research-ready one on the
// lightweight tier.
type Transformer struct {
	stage
}

// NewTransformer creates a query transform stage.
func NewTransformer(client llm.Client, opts ...Option) *Transformer {
	return newTransformer(client, applyOptions(opts))
}

func newTransformer(client llm.Client, o *Options) *Transformer {
	return &Transformer{stage: newStage(StageTransform, llm.TierLightweight, client, o)}
}

type transformReply struct {
	TransformedQuery string `json:"transformed_query"`
	ResearchFocus    string `json:"research_focus"`
	Changed          bool   `json:"changed"`
}

// Transform returns the research-ready query. Backend or parse failures
// yield the trimmed original, unchanged.
func (t *Transformer) Transform(ctx context.Context, query string) Outcome[TransformedQuery] {
	if t.opts.Config.SkipWellFormed && IsWellFormed(query) {
		return success(TransformedQuery{
			Original:      query,
			Transformed:   strings.TrimSpace(query),
			ResearchFocus: focusFor(query),
		})
	}

	raw, err := t.complete(ctx, prompt.QueryTransform, map[string]any{"Query": strings.TrimSpace(query)})
	if err != nil {
		return fallback(TransformFallback(query), err)
	}
	reply, err := decodeJSON[transformReply](raw)
	if err != nil {
		return fallback(TransformFallback(query), err)
	}
	transformed := strings.TrimSpace(reply.TransformedQuery)
	if transformed == "" {
		return fallback(TransformFallback(query), errorskg.Validation("empty transformed_query"))
	}

	return success(TransformedQuery{
		Original:       query,
		Transformed:    transformed,
		ResearchFocus:  strings.TrimSpace(reply.ResearchFocus),
		WasTransformed: reply.Changed && transformed != strings.TrimSpace(query),
	})
}

// TransformFallback is the deterministic result used when transformation fails.
func TransformFallback(query string) TransformedQuery {
	return TransformedQuery{Original: query, Transformed: strings.TrimSpace(query)}
}

// IsWellFormed reports whether query already reads as a research task:
// five or more words, 100 to 500 characters, and a research keyword.
func IsWellFormed(query string) bool {
	q := strings.TrimSpace(query)
	if n := len(q); n <= 100 || n >= 500 {
		return false
	}
	if len(strings.Fields(q)) < 5 {
		return false
	}
	lower := strings.ToLower(q)
	for _, w := range researchIndicators {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func focusFor(query string) string {
	lower := strings.ToLower(query)
	for _, fk := range focusKeywords {
		if strings.Contains(lower, fk.keyword) {
			return fk.focus
		}
	}
	return "comprehensive analysis"
}
