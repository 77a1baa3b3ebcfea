// Package arxiv implements a keyless academic search backend over the arXiv
// Atom API.
package arxiv

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sweetpotato0/ai-research/pkg/httputil"
	"github.com/sweetpotato0/ai-research/pkg/preprocess"
	"github.com/sweetpotato0/ai-research/search"
)

// apiBase is declared as a var so tests can substitute an httptest server.
var apiBase = "https://export.arxiv.org/api/query"

// abstractLimit caps the abstract used as a snippet.
const abstractLimit = 300

// Backend queries arXiv.
type Backend struct {
	Client    *http.Client
	UserAgent string
}

// New creates an arXiv backend.
func New(client *http.Client, userAgent string) *Backend {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Backend{Client: client, UserAgent: userAgent}
}

func (b *Backend) Name() string     { return "arxiv" }
func (b *Backend) Configured() bool { return true }

// Search runs an all: query sorted by relevance.
func (b *Backend) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	terms := strings.Fields(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty arXiv query")
	}
	if limit <= 0 {
		limit = 5
	}

	params := url.Values{
		"search_query": {"all:" + strings.Join(terms, " ")},
		"start":        {"0"},
		"max_results":  {strconv.Itoa(limit)},
		"sortBy":       {"relevance"},
		"sortOrder":    {"descending"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("arXiv API request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httputil.ReadError(resp, "arXiv API")
	}

	var f feed
	if err := xml.NewDecoder(resp.Body).Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing arXiv response: %w", err)
	}

	results := make([]search.Result, 0, len(f.Entries))
	for _, e := range f.Entries {
		r := search.Result{
			Title:   preprocess.CleanSnippet(e.Title),
			Snippet: preprocess.Truncate(preprocess.CleanSnippet(e.Summary), abstractLimit),
			URL:     e.link(),
		}
		if t, err := time.Parse(time.RFC3339, e.Published); err == nil {
			r.Timestamp = t
		}
		results = append(results, r)
	}
	return results, nil
}

// arXiv Atom feed structures.
type feed struct {
	Entries []entry `xml:"entry"`
}

type entry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Links     []struct {
		Href string `xml:"href,attr"`
		Rel  string `xml:"rel,attr"`
		Type string `xml:"type,attr"`
	} `xml:"link"`
}

// link prefers the alternate (abstract page) link, then the entry id.
func (e entry) link() string {
	for _, l := range e.Links {
		if l.Rel == "alternate" && l.Href != "" {
			return l.Href
		}
	}
	return strings.TrimSpace(e.ID)
}
