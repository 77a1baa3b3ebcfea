// Package preprocess normalises text returned by search backends.
package preprocess

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

var (
	reSpaces   = regexp.MustCompile(`[ \t]+`)
	reNewlines = regexp.MustCompile(`\n{3,}`)
	reAnyWS    = regexp.MustCompile(`\s+`)
)

var fixes = strings.NewReplacer(
	"ﬁ", "fi", "ﬂ", "fl",
	"—", "-", "–", "-",
	"·", ".", "•", "-",
	"\u00a0", " ",
)

// CleanBasic drops control characters, fixes common ligatures and collapses
// runs of spaces and blank lines.
func CleanBasic(text string) string {
	if text == "" {
		return ""
	}

	b := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, text)

	b = fixes.Replace(b)
	b = reSpaces.ReplaceAllString(b, " ")
	b = reNewlines.ReplaceAllString(b, "\n\n")

	return strings.TrimSpace(b)
}

// StripTags returns the text content of an HTML fragment with entities decoded.
// Input that fails to parse is returned cleaned but otherwise unchanged.
func StripTags(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return CleanSnippet(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return CleanSnippet(fragment)
	}
	return CleanSnippet(doc.Text())
}

// CleanSnippet flattens text to a single line suitable for a search snippet.
func CleanSnippet(text string) string {
	return strings.TrimSpace(reAnyWS.ReplaceAllString(CleanBasic(text), " "))
}

// Truncate cuts text to at most n runes on a word boundary and appends "...".
func Truncate(text string, n int) string {
	r := []rune(text)
	if n <= 0 || len(r) <= n {
		return text
	}
	cut := string(r[:n])
	if i := strings.LastIndexAny(cut, " \n"); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimSpace(cut) + "..."
}
