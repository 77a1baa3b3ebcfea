// Package duckduckgo implements a keyless search backend that scrapes the
// DuckDuckGo lite HTML page.
package duckduckgo

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"

	"github.com/sweetpotato0/ai-research/pkg/httputil"
	"github.com/sweetpotato0/ai-research/pkg/preprocess"
	"github.com/sweetpotato0/ai-research/search"
)

var baseURL = "https://lite.duckduckgo.com/lite/"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Backend scrapes DuckDuckGo lite. Requests from one Backend are spaced at
// least Interval apart, across goroutines.
type Backend struct {
	Client    *http.Client
	UserAgent string
	limiter   *rate.Limiter
}

// New creates a DuckDuckGo backend limited to one request per interval.
func New(client *http.Client, interval time.Duration) *Backend {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Backend{
		Client:    client,
		UserAgent: defaultUserAgent,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (b *Backend) Name() string     { return "duckduckgo" }
func (b *Backend) Configured() bool { return true }

// Search posts the query to the lite endpoint and parses the result table.
func (b *Backend) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	if err := b.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	form := url.Values{"q": {query}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", b.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httputil.ReadError(resp, "duckduckgo")
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing duckduckgo page: %w", err)
	}
	return parse(doc, limit), nil
}

// parse pairs each a.result-link with the next td.result-snippet.
func parse(doc *goquery.Document, limit int) []search.Result {
	snippets := doc.Find("td.result-snippet").Map(func(_ int, s *goquery.Selection) string {
		return preprocess.CleanSnippet(s.Text())
	})

	var results []search.Result
	doc.Find("a.result-link").EachWithBreak(func(i int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		link := resolve(href)
		title := preprocess.CleanSnippet(s.Text())
		if link == "" || title == "" {
			return true
		}
		r := search.Result{Title: title, URL: link}
		if i < len(snippets) {
			r.Snippet = snippets[i]
		}
		results = append(results, r)
		return limit <= 0 || len(results) < limit
	})
	return results
}

// resolve unwraps DuckDuckGo redirect links ("/l/?uddg=...") to the target URL.
func resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if target := u.Query().Get("uddg"); target != "" && strings.HasSuffix(u.Path, "/l/") {
		return target
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return u.String()
}
