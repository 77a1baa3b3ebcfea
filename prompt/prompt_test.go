package prompt

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultManagerHasStageTemplates(t *testing.T) {
	m := NewDefaultManager()
	assert.Equal(t, []string{DirectAnswer, EvidenceExtraction, QueryTransform, RelevancyCheck, ResearchPlan, Synthesis}, m.List())
}

func TestRenderRelevancyTemplate(t *testing.T) {
	m := NewDefaultManager()
	out, err := m.Render(RelevancyCheck, map[string]any{
		"Original":    "AI in healthcare",
		"Transformed": "Analyze AI adoption in healthcare",
		"Angles":      []string{"Clinical outcomes", "Regulation"},
		"Queries":     []string{"AI diagnostics accuracy"},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Original query: AI in healthcare")
	assert.Contains(t, out, "- Clinical outcomes\n- Regulation")
	assert.Contains(t, out, "- AI diagnostics accuracy")
}

type evidenceView struct {
	Title          string
	Source         string
	RelevanceScore float64
	ExtractedText  string
}

func TestRenderSynthesisNumbersEvidence(t *testing.T) {
	m := NewDefaultManager()
	out, err := m.Render(Synthesis, map[string]any{
		"Query":  "AI in healthcare",
		"Angles": []string{"Diagnostics"},
		"Evidence": []evidenceView{
			{Title: "A", Source: "https://a.example", RelevanceScore: 0.9, ExtractedText: "alpha"},
			{Title: "B", Source: "https://b.example", RelevanceScore: 0.456, ExtractedText: "beta"},
		},
	})
	require.NoError(t, err)
	assert.Contains(t, out, "[1] A (https://a.example, relevance 0.90)")
	assert.Contains(t, out, "[2] B (https://b.example, relevance 0.46)")
	assert.Contains(t, out, "## Executive Summary")
}

func TestRenderMissingKeysRenderEmpty(t *testing.T) {
	m := NewDefaultManager()
	out, err := m.Render(ResearchPlan, map[string]any{"Query": "quantum networking"})
	require.NoError(t, err)
	assert.NotContains(t, out, "Primary focus")
	assert.Contains(t, out, "Task: quantum networking")
}

func TestManagerRegisterAndOverride(t *testing.T) {
	m := NewManager()
	require.NoError(t, m.RegisterString("greet", "Hello {{.Name}}"))
	assert.Error(t, m.RegisterString("greet", "dup"))
	assert.Error(t, m.RegisterString("", "x"))

	require.NoError(t, m.Override("greet", "Hi {{.Name}}"))
	out, err := m.Render("greet", map[string]any{"Name": "Ada"})
	require.NoError(t, err)
	assert.Equal(t, "Hi Ada", out)

	_, err = m.Render("missing", nil)
	assert.Error(t, err)
	_, err = NewTemplate("bad", "{{.Unclosed")
	assert.Error(t, err)
}

func TestLoadDirOverridesKnownTemplates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DirectAnswer+".tmpl"), []byte("Answer briefly: {{.Query}}"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unknown.tmpl"), []byte("ignored"), 0o644))

	m := NewDefaultManager()
	replaced, err := m.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{DirectAnswer}, replaced)

	out, err := m.Render(DirectAnswer, map[string]any{"Query": "what is CRISPR"})
	require.NoError(t, err)
	assert.Equal(t, "Answer briefly: what is CRISPR", out)
	assert.NotContains(t, m.List(), "unknown")

	require.NoError(t, os.WriteFile(filepath.Join(dir, Synthesis+".tmpl"), []byte("{{.Broken"), 0o644))
	_, err = NewDefaultManager().LoadDir(dir)
	assert.Error(t, err)
}

func TestClip(t *testing.T) {
	text := "one two three four five"
	assert.Equal(t, text, Clip(nil, text, 10))
	assert.Equal(t, text, Clip(WordTokenizer{}, text, 0))
	assert.Equal(t, "one two...", Clip(WordTokenizer{}, text, 2))
	assert.Equal(t, 5, WordTokenizer{}.CountTokens(text))
	assert.True(t, strings.HasSuffix(Clip(nil, text, 4), "four..."))
}
