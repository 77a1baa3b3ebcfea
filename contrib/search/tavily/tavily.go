// Package tavily implements a search backend over the Tavily search API.
package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sweetpotato0/ai-research/pkg/httputil"
	"github.com/sweetpotato0/ai-research/search"
)

var baseURL = "https://api.tavily.com/search"

// Backend calls Tavily.
type Backend struct {
	APIKey string
	// Depth is Tavily's search_depth, basic or advanced.
	Depth  string
	Client *http.Client
}

// New constructs a Tavily backend with basic depth.
func New(apiKey string, client *http.Client) *Backend {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Backend{APIKey: strings.TrimSpace(apiKey), Depth: "basic", Client: client}
}

func (b *Backend) Name() string     { return "tavily" }
func (b *Backend) Configured() bool { return b.APIKey != "" }

// Search posts a query to Tavily.
func (b *Backend) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	payload, err := json.Marshal(map[string]any{
		"api_key":      b.APIKey,
		"query":        query,
		"search_depth": b.Depth,
		"max_results":  limit,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("tavily request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httputil.ReadError(resp, "tavily")
	}

	var body struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing tavily response: %w", err)
	}

	results := make([]search.Result, 0, len(body.Results))
	for _, r := range body.Results {
		results = append(results, search.Result{Title: r.Title, URL: r.URL, Snippet: r.Content})
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}
