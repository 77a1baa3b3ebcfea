package research

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/ai-research/llm"
	"github.com/sweetpotato0/ai-research/prompt"
)

// Stage names as they appear in requests, logs and the trace.
const (
	StageTransform  = "query_transform"
	StagePlanning   = "planning"
	StageRelevancy  = "relevancy_check"
	StageSearch     = "search"
	StageExtraction = "evidence_extraction"
	StageSynthesis  = "synthesis"
	StageDirect     = "direct_answer"
)

// stage holds what every stage executor needs.
type stage struct {
	name   string
	tier   llm.Tier
	client llm.Client
	opts   *Options
}

func newStage(name string, tier llm.Tier, client llm.Client, opts *Options) stage {
	return stage{name: name, tier: tier, client: client, opts: opts}
}

// complete renders the stage template and calls the reasoning backend.
func (s stage) complete(ctx context.Context, template string, vars map[string]any) (string, error) {
	if s.client == nil {
		return "", fmt.Errorf("%s: no reasoning client configured", s.name)
	}
	text, err := s.opts.Prompts.Render(template, vars)
	if err != nil {
		return "", err
	}
	s.opts.Logger.Debug("stage prompt", "stage", s.name, "tier", s.tier, "prompt", trimForLog(text, 400))
	return s.client.Complete(ctx, llm.Request{
		Stage:  s.name,
		Tier:   s.tier,
		System: prompt.SystemResearcher,
		Prompt: text,
	})
}
