// Package serper implements a search backend over the Serper Google search API.
package serper

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

// baseURL is var so tests can point it at an httptest server.
var baseURL = "https://google.serper.dev/search"

// Backend queries Serper. It requires an API key.
type Backend struct {
	APIKey string
	Client *http.Client
	// Country and Language map to Serper's gl and hl parameters.
	Country  string
	Language string
}

// New creates a Serper backend. An empty key leaves it unconfigured.
func New(apiKey string, client *http.Client) *Backend {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Backend{APIKey: strings.TrimSpace(apiKey), Client: client, Country: "us", Language: "en"}
}

func (b *Backend) Name() string     { return "serper" }
func (b *Backend) Configured() bool { return b.APIKey != "" }

type request struct {
	Q   string `json:"q"`
	Num int    `json:"num"`
	GL  string `json:"gl,omitempty"`
	HL  string `json:"hl,omitempty"`
}

type response struct {
	Organic []struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
	} `json:"organic"`
	AnswerBox *struct {
		Title   string `json:"title"`
		Link    string `json:"link"`
		Snippet string `json:"snippet"`
		Answer  string `json:"answer"`
	} `json:"answerBox"`
}

// Search posts the query and returns organic results, with the answer box
// first when Serper returns one that links somewhere.
func (b *Backend) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	payload, err := json.Marshal(request{Q: query, Num: limit, GL: b.Country, HL: b.Language})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("X-API-KEY", b.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httputil.DoWithRetry(ctx, b.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("serper request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, httputil.ReadError(resp, "serper")
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing serper response: %w", err)
	}

	results := make([]search.Result, 0, len(body.Organic)+1)
	if ab := body.AnswerBox; ab != nil && ab.Link != "" {
		snippet := ab.Snippet
		if snippet == "" {
			snippet = ab.Answer
		}
		title := ab.Title
		if title == "" {
			title = "Featured Answer"
		}
		results = append(results, search.Result{Title: title, Snippet: snippet, URL: ab.Link})
	}
	for _, item := range body.Organic {
		if limit > 0 && len(results) >= limit {
			break
		}
		results = append(results, search.Result{Title: item.Title, Snippet: item.Snippet, URL: item.Link})
	}
	return results, nil
}
