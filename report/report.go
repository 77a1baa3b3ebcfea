// Package report emits finished research runs to durable sinks.
package report

import (
	"context"
	"time"

	"github.com/sweetpotato0/ai-research/research"
)

// Artifact is the persisted form of one research run.
type Artifact struct {
	RunID          string              `json:"run_id"`
	Query          string              `json:"query"`
	Report         string              `json:"report"`
	IsLLMGenerated bool                `json:"is_llm_generated"`
	Plan           research.Plan       `json:"plan"`
	Evidence       []research.Evidence `json:"evidence"`
	Sources        []string            `json:"sources"`
	CreatedAt      time.Time           `json:"created_at"`
}

// Sink receives finished artifacts.
type Sink interface {
	Emit(ctx context.Context, a Artifact) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, a Artifact) error

// Emit calls f.
func (f SinkFunc) Emit(ctx context.Context, a Artifact) error { return f(ctx, a) }

// FromResponse builds the artifact for a completed run.
func FromResponse(resp *research.Response, now time.Time) Artifact {
	if resp == nil || resp.State == nil {
		return Artifact{CreatedAt: now}
	}
	s := resp.State
	return Artifact{
		RunID:          resp.RunID,
		Query:          s.OriginalQuery,
		Report:         s.Report,
		IsLLMGenerated: s.IsLLMGenerated,
		Plan:           s.Plan,
		Evidence:       s.Evidence,
		Sources:        s.Sources(),
		CreatedAt:      now,
	}
}

// Discard drops every artifact.
var Discard Sink = SinkFunc(func(context.Context, Artifact) error { return nil })
