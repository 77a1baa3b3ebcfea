package tiktoken

import (
	"strings"
	"testing"

	"github.com/sweetpotato0/ai-research/prompt"
)

func TestTokenizerTruncate(t *testing.T) {
	tok, err := NewTiktokenTokenizer("cl100k_base")
	if err != nil {
		// The encoding is fetched on first use; offline environments skip.
		t.Skipf("encoding unavailable: %v", err)
	}

	text := strings.Repeat("evidence extraction budget ", 40)
	n := tok.CountTokens(text)
	if n <= 20 {
		t.Fatalf("expected more than 20 tokens, got %d", n)
	}

	clipped := prompt.Clip(tok, text, 20)
	if !strings.HasSuffix(clipped, "...") {
		t.Fatalf("expected ellipsis, got %q", clipped)
	}
	if got := tok.CountTokens(strings.TrimSuffix(clipped, "...")); got > 20 {
		t.Fatalf("expected at most 20 tokens after clip, got %d", got)
	}
	if tok.Truncate("short", 20) != "short" {
		t.Fatalf("short text should be unchanged")
	}
}
