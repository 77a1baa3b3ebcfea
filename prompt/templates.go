package prompt

// Stage template names.
const (
	QueryTransform     = "query_transform"
	ResearchPlan       = "research_plan"
	RelevancyCheck     = "relevancy_check"
	EvidenceExtraction = "evidence_extraction"
	Synthesis          = "synthesis"
	DirectAnswer       = "direct_answer"
)

// SystemResearcher is the default system instruction for every stage.
const SystemResearcher = `You are a careful research analyst. Be factual and specific, say when evidence is thin, and follow the requested output format exactly.`

var defaults = map[string]string{
	QueryTransform: `Rewrite the query below so it can drive a structured research effort.

Query: {{.Query}}

Resolve ambiguous terms and name the subject precisely. Frame it as a research task that starts with a verb such as "Analyze", "Investigate", "Evaluate" or "Examine", and keep every subject word the user wrote.
If the query is already precise and research-ready, return it unchanged and set "changed" to false.

Reply with JSON only:
{"transformed_query": "...", "research_focus": "short phrase naming the main focus", "changed": true}`,

	ResearchPlan: `Design a research plan for the task below.

Task: {{.Query}}
{{- if .Focus}}
Primary focus: {{.Focus}}
{{- end}}

Provide:
- 3 to 5 distinct research angles
- 5 to 8 specific web search queries that together cover those angles
- 3 to 5 focus areas to look for while reading sources

Reply with JSON only:
{"research_angles": ["..."], "search_queries": ["..."], "focus_areas": ["..."]}`,

	RelevancyCheck: `Judge whether the research plan below serves what the user actually asked.

Original query: {{.Original}}
Interpreted task: {{.Transformed}}
Research angles:
{{range .Angles}}- {{.}}
{{end}}Search queries:
{{range .Queries}}- {{.}}
{{end}}
Score the alignment from 0.0 (unrelated to the user's intent) to 1.0 (fully aligned). Queries that cannot be answered with web research, such as greetings, arithmetic or personal opinions, should score low.

Reply with JSON only:
{"score": 0.0, "reasoning": "one or two sentences"}`,

	EvidenceExtraction: `Extract the evidence in this search result that bears on the research task.

Research task: {{.Query}}
{{- if .FocusAreas}}
Focus areas: {{join .FocusAreas ", "}}
{{- end}}

Source title: {{.Title}}
Source URL: {{.URL}}
Content:
{{.Snippet}}

Quote or paraphrase the key claims, figures and findings in at most 150 words. Rate how relevant this source is to the task from 0.0 to 1.0.

Reply with JSON only:
{"extracted_text": "...", "relevance_score": 0.0}`,

	Synthesis: `Write a research report in markdown for the task below, using only the numbered evidence.

Task: {{.Query}}
Research angles:
{{range .Angles}}- {{.}}
{{end}}
Evidence, highest relevance first:
{{range $i, $e := .Evidence}}[{{inc $i}}] {{$e.Title}} ({{$e.Source}}, relevance {{printf "%.2f" $e.RelevanceScore}})
{{$e.ExtractedText}}

{{end}}
Use exactly this structure:
## Executive Summary
Two or three paragraphs answering the task.
## Findings
One "###" subsection per research angle, citing evidence as [n].
## Conclusions
Key takeaways and open questions.

Do not write a references section; one is appended automatically.`,

	DirectAnswer: `Answer the question below from your own knowledge. No external sources were consulted.

Question: {{.Query}}
{{- if .Reasoning}}
Why web research was skipped: {{.Reasoning}}
{{- end}}

Give a clear, well-structured markdown answer. State uncertainty where it exists and do not invent citations.`,
}
