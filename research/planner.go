package research

import (
	"context"
	"strings"
	"unicode"

	errorskg "github.com/sweetpotato0/ai-research/errors"
	"github.com/sweetpotato0/ai-research/llm"
	"github.com/sweetpotato0/ai-research/prompt"
)

var fallbackAngles = []string{
	"Academic perspective",
	"Industry applications",
	"Technical challenges",
	"Future implications",
}

var fallbackQuerySuffixes = []string{"", " research papers", " case studies", " best practices", " challenges and risks"}

var questionWords = map[string]struct{}{
	"what": {}, "where": {}, "when": {}, "which": {}, "while": {},
	"whose": {}, "would": {}, "could": {}, "should": {}, "about": {},
}

const maxFocusAreas = 5

// Planner produces research angles and search queries on the main tier.
type Planner struct {
	stage
}

// NewPlanner creates a planning stage.
func NewPlanner(client llm.Client, opts ...Option) *Planner {
	return newPlanner(client, applyOptions(opts))
}

func newPlanner(client llm.Client, o *Options) *Planner {
	return &Planner{stage: newStage(StagePlanning, llm.TierMain, client, o)}
}

// Plan asks the model for a plan and validates it. Any failure yields the
// template plan from FallbackPlan.
func (p *Planner) Plan(ctx context.Context, tq TransformedQuery) Outcome[Plan] {
	query := tq.Transformed
	raw, err := p.complete(ctx, prompt.ResearchPlan, map[string]any{
		"Query": query,
		"Focus": tq.ResearchFocus,
	})
	if err != nil {
		return fallback(FallbackPlan(query), err)
	}
	plan, err := decodeJSON[Plan](raw)
	if err != nil {
		return fallback(FallbackPlan(query), err)
	}
	if err := p.validate(plan); err != nil {
		return fallback(FallbackPlan(query), err)
	}
	return success(*plan)
}

// validate trims the plan, truncates it to the upper bounds and rejects it
// below the lower bounds.
func (p *Planner) validate(plan *Plan) error {
	cfg := p.opts.Config
	plan.Angles = cleanList(plan.Angles)
	plan.SearchQueries = cleanList(plan.SearchQueries)
	plan.FocusAreas = cleanList(plan.FocusAreas)

	if len(plan.Angles) > cfg.MaxAngles {
		plan.Angles = plan.Angles[:cfg.MaxAngles]
	}
	if len(plan.SearchQueries) > cfg.MaxQueries {
		plan.SearchQueries = plan.SearchQueries[:cfg.MaxQueries]
	}
	if len(plan.Angles) < cfg.MinAngles {
		return errorskg.Validation("plan has %d research angles, need at least %d", len(plan.Angles), cfg.MinAngles)
	}
	if len(plan.SearchQueries) < cfg.MinQueries {
		return errorskg.Validation("plan has %d search queries, need at least %d", len(plan.SearchQueries), cfg.MinQueries)
	}
	return nil
}

// FallbackPlan derives a plan mechanically from the query.
func FallbackPlan(query string) Plan {
	query = strings.TrimSpace(query)

	angles := make([]string, 0, len(fallbackAngles)+1)
	angles = append(angles, query)
	angles = append(angles, fallbackAngles...)

	queries := make([]string, 0, len(fallbackQuerySuffixes))
	for _, suffix := range fallbackQuerySuffixes {
		queries = append(queries, query+suffix)
	}

	return Plan{Angles: angles, SearchQueries: queries, FocusAreas: focusAreas(query)}
}

func focusAreas(query string) []string {
	words := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	seen := make(map[string]struct{})
	areas := []string{}
	for _, w := range words {
		if len([]rune(w)) <= 4 {
			continue
		}
		if _, ok := questionWords[w]; ok {
			continue
		}
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		areas = append(areas, w)
		if len(areas) == maxFocusAreas {
			break
		}
	}
	return areas
}
