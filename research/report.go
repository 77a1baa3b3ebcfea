package research

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

const reportDateLayout = "2006-01-02 15:04"

// markdownHeading captures the level and text of an ATX heading line.
var markdownHeading = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*#*\s*$`)

// referencesTitle matches a heading whose whole text names a references list.
var referencesTitle = regexp.MustCompile(`(?i)^\**\s*(references|sources|evidence sources|bibliography)\s*:?\s*\**$`)

var executiveSummary = regexp.MustCompile(`(?i)executive summary`)

// stripReferences removes model-written references sections. Each section
// runs from its heading up to the next heading of the same or higher level.
func stripReferences(body string) string {
	lines := strings.Split(body, "\n")
	kept := make([]string, 0, len(lines))
	skipLevel := 0
	inFence := false
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			inFence = !inFence
		}
		if !inFence {
			if m := markdownHeading.FindStringSubmatch(line); m != nil {
				level := len(m[1])
				if skipLevel > 0 && level <= skipLevel {
					skipLevel = 0
				}
				if skipLevel == 0 && referencesTitle.MatchString(m[2]) {
					skipLevel = level
				}
			}
		}
		if skipLevel == 0 {
			kept = append(kept, line)
		}
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func metadataHeader(topic string, sources int, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Research Date:** %s\n\n", now.Format(reportDateLayout))
	fmt.Fprintf(&b, "**Topic:** %s\n\n", topic)
	fmt.Fprintf(&b, "**Sources Analyzed:** %d\n\n---\n\n", sources)
	return b.String()
}

// referencesSection lists every unique evidence URL once, in first-seen order.
func referencesSection(evidence []Evidence) string {
	var b strings.Builder
	b.WriteString("## References\n\n")
	titles := make(map[string]string, len(evidence))
	for _, e := range evidence {
		if _, ok := titles[e.Source]; !ok {
			titles[e.Source] = e.Title
		}
	}
	sources := uniqueSources(evidence)
	if len(sources) == 0 {
		b.WriteString("No sources were retrieved.\n")
		return b.String()
	}
	for i, url := range sources {
		title := strings.TrimSpace(titles[url])
		if title == "" {
			title = url
		}
		fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, title, url)
	}
	return b.String()
}

// assembleReport wraps a synthesized body, already stripped of references,
// with the header and the references built from evidence.
func assembleReport(topic, body string, evidence []Evidence, now time.Time) string {
	return metadataHeader(topic, len(evidence), now) + body + "\n\n" + referencesSection(evidence)
}

// mechanicalReport builds a report without the model. It names every
// evidence item with its title, score and source.
func mechanicalReport(topic string, plan Plan, evidence []Evidence, clip int, now time.Time) string {
	var b strings.Builder
	b.WriteString(metadataHeader(topic, len(evidence), now))
	fmt.Fprintf(&b, "# Research Report: %s\n\n", topic)
	b.WriteString("## Executive Summary\n\n")

	angles := "multiple perspectives"
	if len(plan.Angles) > 0 {
		angles = strings.Join(plan.Angles, ", ")
	}
	if len(evidence) == 0 {
		fmt.Fprintf(&b, "This research examined %s across %s. No sources could be retrieved, so no findings are available. Try rephrasing the query or checking search backend configuration.\n\n", topic, angles)
	} else {
		fmt.Fprintf(&b, "This research examined %s across %s. Automated synthesis was unavailable, so the findings below list the collected evidence ordered by relevance.\n\n", topic, angles)
	}

	b.WriteString("## Findings\n\n")
	if len(evidence) == 0 {
		b.WriteString("No evidence was collected.\n\n")
	}
	for i, e := range rankEvidence(evidence) {
		title := strings.TrimSpace(e.Title)
		if title == "" {
			title = e.Source
		}
		fmt.Fprintf(&b, "### Finding %d: %s\n\n", i+1, title)
		fmt.Fprintf(&b, "**Relevance:** %.2f\n\n", e.RelevanceScore)
		if text := strings.TrimSpace(e.ExtractedText); text != "" {
			fmt.Fprintf(&b, "%s\n\n", clipText(text, clip))
		}
		fmt.Fprintf(&b, "*Source: %s*\n\n", e.Source)
	}

	b.WriteString(referencesSection(evidence))
	return b.String()
}

func clipText(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}

const disclaimer = "> **Disclaimer:** This answer is generated from model knowledge, not external sources. " +
	"No web research was performed, so it may be incomplete or out of date."

// directReport wraps a model-knowledge answer with the disclaimer and the
// reason research was skipped.
func directReport(query, answer, reasoning string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Research Date:** %s\n\n", now.Format(reportDateLayout))
	fmt.Fprintf(&b, "**Topic:** %s\n\n", query)
	b.WriteString("**Sources Analyzed:** 0\n\n---\n\n")
	fmt.Fprintf(&b, "# Research Report: %s\n\n", query)
	b.WriteString(disclaimer + "\n\n")
	if reasoning = strings.TrimSpace(reasoning); reasoning != "" {
		fmt.Fprintf(&b, "**Why research was skipped:** %s\n\n", reasoning)
	}
	b.WriteString("## Answer\n\n")
	b.WriteString(strings.TrimSpace(answer))
	b.WriteString("\n")
	return b.String()
}

const apology = "I was unable to generate an answer for this query. " +
	"Please try rephrasing it, being more specific, or splitting it into smaller questions."

// errorReport is returned for queries that cannot be processed at all.
func errorReport(now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**Research Date:** %s\n\n---\n\n", now.Format(reportDateLayout))
	b.WriteString("# Research Report\n\n")
	b.WriteString("## Error\n\n")
	b.WriteString("No query was provided. Please enter a question or topic to research.\n")
	return b.String()
}
