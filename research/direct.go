package research

import (
	"context"
	"strings"

	errorskg "github.com/sweetpotato0/ai-research/errors"
	"github.com/sweetpotato0/ai-research/llm"
	"github.com/sweetpotato0/ai-research/prompt"
)

// DirectAnswerer answers from model knowledge when the plan was judged not
// relevant. It runs on the main tier.
type DirectAnswerer struct {
	stage
}

// NewDirectAnswerer creates a direct answer stage.
func NewDirectAnswerer(client llm.Client, opts ...Option) *DirectAnswerer {
	return newDirectAnswerer(client, applyOptions(opts))
}

func newDirectAnswerer(client llm.Client, o *Options) *DirectAnswerer {
	return &DirectAnswerer{stage: newStage(StageDirect, llm.TierMain, client, o)}
}

// Answer returns a disclaimer-wrapped report. A failed call yields an
// apology in the same wrapper.
func (d *DirectAnswerer) Answer(ctx context.Context, query, reasoning string) Outcome[string] {
	now := d.opts.Now()
	answer, err := d.complete(ctx, prompt.DirectAnswer, map[string]any{
		"Query":     query,
		"Reasoning": reasoning,
	})
	if err == nil && strings.TrimSpace(answer) == "" {
		err = errorskg.Validation("empty direct answer")
	}
	if err != nil {
		return fallback(directReport(query, apology, reasoning, now), err)
	}
	return success(directReport(query, answer, reasoning, now))
}
