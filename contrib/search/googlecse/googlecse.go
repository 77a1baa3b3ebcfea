// Package googlecse implements a search backend over Google Programmable
// Search (Custom Search JSON API).
package googlecse

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"

	"github.com/sweetpotato0/ai-research/search"
)

// maxPerRequest is the API's ceiling on num.
const maxPerRequest = 10

// Backend queries a Programmable Search Engine. Both the API key and the
// engine ID are required.
type Backend struct {
	APIKey   string
	EngineID string
	// Endpoint overrides the API base URL.
	Endpoint string
	Client   *http.Client

	once    sync.Once
	svc     *customsearch.Service
	initErr error
}

// New creates a Custom Search backend.
func New(apiKey, engineID string) *Backend {
	return &Backend{APIKey: strings.TrimSpace(apiKey), EngineID: strings.TrimSpace(engineID)}
}

func (b *Backend) Name() string     { return "googlecse" }
func (b *Backend) Configured() bool { return b.APIKey != "" && b.EngineID != "" }

func (b *Backend) service(ctx context.Context) (*customsearch.Service, error) {
	b.once.Do(func() {
		opts := []option.ClientOption{option.WithAPIKey(b.APIKey)}
		if b.Endpoint != "" {
			opts = append(opts, option.WithEndpoint(b.Endpoint))
		}
		if b.Client != nil {
			opts = append(opts, option.WithHTTPClient(b.Client))
		}
		b.svc, b.initErr = customsearch.NewService(context.WithoutCancel(ctx), opts...)
	})
	return b.svc, b.initErr
}

// Search runs one cse.list call.
func (b *Backend) Search(ctx context.Context, query string, limit int) ([]search.Result, error) {
	svc, err := b.service(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating custom search service: %w", err)
	}
	if limit <= 0 || limit > maxPerRequest {
		limit = maxPerRequest
	}

	resp, err := svc.Cse.List().Cx(b.EngineID).Q(query).Num(int64(limit)).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("custom search: %w", err)
	}

	results := make([]search.Result, 0, len(resp.Items))
	for _, item := range resp.Items {
		results = append(results, search.Result{Title: item.Title, Snippet: item.Snippet, URL: item.Link})
	}
	return results, nil
}
