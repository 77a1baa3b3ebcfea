// Package mcp exposes the research pipeline as an MCP tool server.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/sweetpotato0/ai-research/pkg/logging"
	"github.com/sweetpotato0/ai-research/report"
	"github.com/sweetpotato0/ai-research/runner"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ResearchInput is the input schema for the research tool.
type ResearchInput struct {
	Query string `json:"query" jsonschema:"the question or topic to research"`
}

// ResearchOutput is the structured output of the research tool.
type ResearchOutput struct {
	RunID          string   `json:"run_id"`
	Report         string   `json:"report"`
	IsLLMGenerated bool     `json:"is_llm_generated"`
	Sources        []string `json:"sources"`
}

// Option configures optional server behaviour.
type Option func(*Server)

// WithSink emits every finished run to s.
func WithSink(s report.Sink) Option {
	return func(srv *Server) {
		if s != nil {
			srv.sink = s
		}
	}
}

// WithLogger overrides the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(srv *Server) {
		if l != nil {
			srv.logger = l
		}
	}
}

// Server serves the research tool.
type Server struct {
	researcher runner.Researcher
	sink       report.Sink
	logger     *slog.Logger
	now        func() time.Time
	server     *sdkmcp.Server
}

// NewServer registers the research tool on a new MCP server.
func NewServer(name string, researcher runner.Researcher, opts ...Option) (*Server, error) {
	if researcher == nil {
		return nil, fmt.Errorf("mcp: researcher is required")
	}
	s := &Server{
		researcher: researcher,
		sink:       report.Discard,
		logger:     logging.WithComponent("mcp"),
		now:        time.Now,
		server: sdkmcp.NewServer(&sdkmcp.Implementation{
			Name:    name,
			Version: Version,
		}, nil),
	}
	for _, opt := range opts {
		opt(s)
	}

	sdkmcp.AddTool(s.server, &sdkmcp.Tool{
		Name:        "research",
		Description: "Research a question on the web and return a sourced markdown report",
	}, s.handleResearch)
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &sdkmcp.StdioTransport{})
}

func (s *Server) handleResearch(ctx context.Context, _ *sdkmcp.CallToolRequest, in ResearchInput) (*sdkmcp.CallToolResult, ResearchOutput, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return nil, ResearchOutput{}, fmt.Errorf("query is required")
	}

	resp, err := s.researcher.Run(ctx, query)
	if err != nil {
		return nil, ResearchOutput{}, err
	}

	artifact := report.FromResponse(resp, s.now())
	if err := s.sink.Emit(ctx, artifact); err != nil {
		s.logger.Warn("emit report failed", "run_id", resp.RunID, "error", err)
	}

	out := ResearchOutput{
		RunID:          artifact.RunID,
		Report:         artifact.Report,
		IsLLMGenerated: artifact.IsLLMGenerated,
		Sources:        artifact.Sources,
	}
	if out.Sources == nil {
		out.Sources = []string{}
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: out.Report}},
	}, out, nil
}
