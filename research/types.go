// Package research turns a user query into a sourced report: it transforms
// the query, plans the research, checks the plan against the user's intent,
// then either searches, extracts and synthesizes evidence or answers
// directly from model knowledge.
package research

import (
	"github.com/sweetpotato0/ai-research/search"
)

// TransformedQuery is the research-ready form of the user's query.
type TransformedQuery struct {
	Original       string `json:"original"`
	Transformed    string `json:"transformed"`
	ResearchFocus  string `json:"research_focus"`
	WasTransformed bool   `json:"was_transformed"`
}

// Plan lists the angles to cover and the web queries to run.
type Plan struct {
	Angles        []string `json:"research_angles"`
	SearchQueries []string `json:"search_queries"`
	FocusAreas    []string `json:"focus_areas"`
}

// Relevancy is the verdict on whether the plan serves the original query.
type Relevancy struct {
	IsRelevant bool    `json:"is_relevant"`
	Score      float64 `json:"score"`
	Reasoning  string  `json:"reasoning"`
}

// Evidence is the part of one search result that bears on the query.
type Evidence struct {
	Source          string  `json:"source"`
	Title           string  `json:"title"`
	ExtractedText   string  `json:"extracted_text"`
	RelevanceScore  float64 `json:"relevance_score"`
	OriginalSnippet string  `json:"original_snippet"`
}

// State accumulates across one run. It is owned by that run only.
type State struct {
	OriginalQuery    string           `json:"original_query"`
	TransformedQuery TransformedQuery `json:"transformed_query"`
	Plan             Plan             `json:"plan"`
	Relevancy        Relevancy        `json:"relevancy"`
	IsLLMGenerated   bool             `json:"is_llm_generated"`
	SearchResults    []search.Result  `json:"search_results"`
	Evidence         []Evidence       `json:"evidence"`
	Report           string           `json:"report"`
}

// Response is what Pipeline.Run returns.
type Response struct {
	RunID string       `json:"run_id"`
	State *State       `json:"state"`
	Trace []TraceEntry `json:"trace"`
}

// Sources returns the unique evidence URLs in first-seen order.
func (s *State) Sources() []string {
	return uniqueSources(s.Evidence)
}

func uniqueSources(evidence []Evidence) []string {
	seen := make(map[string]struct{}, len(evidence))
	var out []string
	for _, e := range evidence {
		if e.Source == "" {
			continue
		}
		if _, ok := seen[e.Source]; ok {
			continue
		}
		seen[e.Source] = struct{}{}
		out = append(out, e.Source)
	}
	return out
}
