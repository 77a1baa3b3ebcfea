package research

import (
	"context"
	"fmt"
	"strings"

	errorskg "github.com/sweetpotato0/ai-research/errors"
	"github.com/sweetpotato0/ai-research/llm"
	"github.com/sweetpotato0/ai-research/prompt"
)

// RelevancyChecker scores how well a plan serves the original query on the
// lightweight tier.
type RelevancyChecker struct {
	stage
}

// NewRelevancyChecker creates a relevancy stage.
func NewRelevancyChecker(client llm.Client, opts ...Option) *RelevancyChecker {
	return newRelevancyChecker(client, applyOptions(opts))
}

func newRelevancyChecker(client llm.Client, o *Options) *RelevancyChecker {
	return &RelevancyChecker{stage: newStage(StageRelevancy, llm.TierLightweight, client, o)}
}

type relevancyReply struct {
	Score     *float64 `json:"score"`
	Reasoning string   `json:"reasoning"`
}

// Check scores the plan. On failure the configured failure score is assumed
// and the same threshold rule applies.
func (c *RelevancyChecker) Check(ctx context.Context, original string, tq TransformedQuery, plan Plan) Outcome[Relevancy] {
	raw, err := c.complete(ctx, prompt.RelevancyCheck, map[string]any{
		"Original":    original,
		"Transformed": tq.Transformed,
		"Angles":      plan.Angles,
		"Queries":     plan.SearchQueries,
	})
	if err != nil {
		return fallback(c.fallback(err), err)
	}
	reply, err := decodeJSON[relevancyReply](raw)
	if err != nil {
		return fallback(c.fallback(err), err)
	}
	if reply.Score == nil {
		err = errorskg.Validation("relevancy reply has no score")
		return fallback(c.fallback(err), err)
	}
	score := *reply.Score
	if score < 0 || score > 1 {
		err = errorskg.Validation("relevancy score %v outside [0,1]", score)
		return fallback(c.fallback(err), err)
	}

	return success(Relevancy{
		Score:      score,
		IsRelevant: c.relevant(score),
		Reasoning:  clipRunes(strings.TrimSpace(reply.Reasoning), c.opts.Config.ReasoningLimit),
	})
}

func (c *RelevancyChecker) relevant(score float64) bool {
	return score >= c.opts.Config.RelevancyThreshold
}

func (c *RelevancyChecker) fallback(err error) Relevancy {
	score := c.opts.Config.RelevancyFailureScore
	return Relevancy{
		Score:      score,
		IsRelevant: c.relevant(score),
		Reasoning: fmt.Sprintf("Relevancy check failed (%s); proceeding with an assumed score of %.2f.",
			errorskg.Reason(err), score),
	}
}

func clipRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}
