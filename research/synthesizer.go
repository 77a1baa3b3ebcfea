package research

import (
	"context"
	"slices"
	"strings"

	errorskg "github.com/sweetpotato0/ai-research/errors"
	"github.com/sweetpotato0/ai-research/llm"
	"github.com/sweetpotato0/ai-research/prompt"
)

// Synthesizer writes the final report from evidence on the main tier.
type Synthesizer struct {
	stage
}

// NewSynthesizer creates a synthesis stage.
func NewSynthesizer(client llm.Client, opts ...Option) *Synthesizer {
	return newSynthesizer(client, applyOptions(opts))
}

func newSynthesizer(client llm.Client, o *Options) *Synthesizer {
	return &Synthesizer{stage: newStage(StageSynthesis, llm.TierMain, client, o)}
}

// Synthesize writes the report for topic from the top-K evidence. The
// references always cover all evidence. With no evidence the backend is not
// called and the mechanical report notes the missing sources.
func (s *Synthesizer) Synthesize(ctx context.Context, topic string, plan Plan, evidence []Evidence) Outcome[string] {
	now := s.opts.Now()
	if len(evidence) == 0 {
		return degraded(mechanicalReport(topic, plan, nil, s.opts.Config.FindingRunes, now), ReasonNoEvidence)
	}

	top := rankEvidence(evidence)
	if k := s.opts.Config.TopKEvidence; k > 0 && len(top) > k {
		top = top[:k]
	}

	body, err := s.complete(ctx, prompt.Synthesis, map[string]any{
		"Query":    topic,
		"Angles":   plan.Angles,
		"Evidence": top,
	})
	if err == nil {
		body = stripReferences(body)
		err = validateReportBody(body)
	}
	if err != nil {
		return fallback(mechanicalReport(topic, plan, evidence, s.opts.Config.FindingRunes, now), err)
	}
	return success(assembleReport(topic, body, evidence, now))
}

func validateReportBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return errorskg.Validation("empty report body")
	}
	if !executiveSummary.MatchString(body) {
		return errorskg.Validation("report body has no Executive Summary section")
	}
	return nil
}

// rankEvidence orders a copy of evidence by descending relevance, keeping
// input order among equal scores.
func rankEvidence(evidence []Evidence) []Evidence {
	ranked := slices.Clone(evidence)
	slices.SortStableFunc(ranked, func(a, b Evidence) int {
		switch {
		case a.RelevanceScore > b.RelevanceScore:
			return -1
		case a.RelevanceScore < b.RelevanceScore:
			return 1
		default:
			return 0
		}
	})
	return ranked
}
