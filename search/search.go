// Package search fans a query out over an ordered list of search backends and
// returns the first usable result set.
package search

import (
	"context"
	"time"
)

// Result is one normalised search hit. Results are not deduplicated.
type Result struct {
	Title         string    `json:"title"`
	Snippet       string    `json:"snippet"`
	URL           string    `json:"url"`
	SourceBackend string    `json:"source_backend"`
	Timestamp     time.Time `json:"timestamp"`
}

// Backend is one provider in the failover chain.
type Backend interface {
	// Name tags results and log lines.
	Name() string
	// Configured reports whether the backend has the credentials it needs.
	// Unconfigured backends are skipped without counting as a failure.
	Configured() bool
	// Search returns at most limit results for query.
	Search(ctx context.Context, query string, limit int) ([]Result, error)
}

// BackendFunc adapts a function into a Backend that needs no credentials.
type BackendFunc struct {
	ID string
	Fn func(ctx context.Context, query string, limit int) ([]Result, error)
}

func (b BackendFunc) Name() string     { return b.ID }
func (b BackendFunc) Configured() bool { return true }

func (b BackendFunc) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	return b.Fn(ctx, query, limit)
}
