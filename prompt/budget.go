package prompt

import (
	"strings"
)

// Tokenizer counts and truncates text in model tokens.
type Tokenizer interface {
	CountTokens(text string) int
	Truncate(text string, maxTokens int) string
}

// WordTokenizer approximates tokens with whitespace-separated words. It is
// the fallback when no model encoding is available.
type WordTokenizer struct{}

// CountTokens returns the number of words in text.
func (WordTokenizer) CountTokens(text string) int {
	return len(strings.Fields(text))
}

// Truncate keeps the first maxTokens words.
func (WordTokenizer) Truncate(text string, maxTokens int) string {
	words := strings.Fields(text)
	if maxTokens <= 0 || len(words) <= maxTokens {
		return strings.TrimSpace(text)
	}
	return strings.Join(words[:maxTokens], " ")
}

// Clip truncates text to maxTokens and marks the cut with an ellipsis.
func Clip(tok Tokenizer, text string, maxTokens int) string {
	if tok == nil {
		tok = WordTokenizer{}
	}
	text = strings.TrimSpace(text)
	if maxTokens <= 0 || tok.CountTokens(text) <= maxTokens {
		return text
	}
	return strings.TrimSpace(tok.Truncate(text, maxTokens)) + "..."
}
