// Package wikipedia implements a keyless search backend over the MediaWiki
// search API.
package wikipedia

import (
	"context"
	"encoding/json"
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

var apiBase = "https://en.wikipedia.org/w/api.php"

// Backend searches one Wikipedia language edition.
type Backend struct {
	Client    *http.Client
	UserAgent string
	// ArticleBase prefixes page titles to form result URLs.
	ArticleBase string
}

// New creates an English Wikipedia backend.
func New(client *http.Client, userAgent string) *Backend {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Backend{Client: client, UserAgent: userAgent, ArticleBase: "https://en.wikipedia.org/wiki/"}
}

func (b *Backend) Name() string     { return "wikipedia" }
func (b *Backend) Configured() bool { return true }

// Search runs list=search and turns each hit into an article link.
func (b *Backend) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	if limit <= 0 {
		limit = 5
	}
	params := url.Values{
		"action":   {"query"},
		"list":     {"search"},
		"srsearch": {query},
		"srlimit":  {strconv.Itoa(limit)},
		"format":   {"json"},
		"utf8":     {"1"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	if b.UserAgent != "" {
		req.Header.Set("User-Agent", b.UserAgent)
	}

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("wikipedia request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httputil.ReadError(resp, "wikipedia")
	}

	var body struct {
		Query struct {
			Search []struct {
				Title   string `json:"title"`
				Snippet string `json:"snippet"`
			} `json:"search"`
		} `json:"query"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing wikipedia response: %w", err)
	}

	results := make([]search.Result, 0, len(body.Query.Search))
	for _, hit := range body.Query.Search {
		title := strings.TrimSpace(hit.Title)
		if title == "" {
			continue
		}
		results = append(results, search.Result{
			Title:   title,
			Snippet: preprocess.StripTags(hit.Snippet),
			URL:     b.ArticleBase + url.PathEscape(strings.ReplaceAll(title, " ", "_")),
		})
	}
	return results, nil
}
