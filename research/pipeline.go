package research

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/sweetpotato0/ai-research/graph"
	"github.com/sweetpotato0/ai-research/llm"
	"github.com/sweetpotato0/ai-research/pkg/telemetry"
	"github.com/sweetpotato0/ai-research/search"
)

// Graph node names.
const (
	NodeStart         = "start"
	NodeTransforming  = "transforming"
	NodePlanning      = "planning"
	NodeChecking      = "checking_relevancy"
	NodeRelevancyGate = "relevancy_gate"
	NodeSearching     = "searching"
	NodeExtracting    = "extracting"
	NodeSynthesizing  = "synthesizing"
	NodeDirect        = "answering_directly"
	NodeDone          = "done"
)

// Searcher runs one web query. *search.Gateway satisfies it.
type Searcher interface {
	Search(ctx context.Context, query string) []search.Result
}

// Pipeline runs the research workflow on a graph. One Pipeline may serve
// many concurrent runs; each run owns its state.
type Pipeline struct {
	opts        *Options
	searcher    Searcher
	transformer *Transformer
	planner     *Planner
	checker     *RelevancyChecker
	extractor   *Extractor
	synthesizer *Synthesizer
	direct      *DirectAnswerer
	graph       *graph.Graph[*run]
	logger      *slog.Logger
	tracer      trace.Tracer
}

// run carries one execution through the graph.
type run struct {
	id    string
	state *State
	trace *tracer
}

// NewPipeline wires every stage to client and the search step to searcher.
func NewPipeline(client llm.Client, searcher Searcher, opts ...Option) (*Pipeline, error) {
	if client == nil {
		return nil, fmt.Errorf("reasoning client is required")
	}
	if searcher == nil {
		return nil, fmt.Errorf("searcher is required")
	}
	o := applyOptions(opts)

	p := &Pipeline{
		opts:        o,
		searcher:    searcher,
		transformer: newTransformer(client, o),
		planner:     newPlanner(client, o),
		checker:     newRelevancyChecker(client, o),
		extractor:   newExtractor(client, o),
		synthesizer: newSynthesizer(client, o),
		direct:      newDirectAnswerer(client, o),
		logger:      o.Logger,
		tracer:      telemetry.Tracer("github.com/sweetpotato0/ai-research/research"),
	}

	g, err := graph.NewBuilder[*run]().
		AddStart(NodeStart, nil).
		AddStage(NodeTransforming, p.node(NodeTransforming, p.transformNode)).
		AddStage(NodePlanning, p.node(NodePlanning, p.planNode)).
		AddStage(NodeChecking, p.node(NodeChecking, p.relevancyNode)).
		AddConditionNode(NodeRelevancyGate, p.relevancyGate, map[string]string{
			"research": NodeSearching,
			"direct":   NodeDirect,
		}).
		AddStage(NodeSearching, p.node(NodeSearching, p.searchNode)).
		AddStage(NodeExtracting, p.node(NodeExtracting, p.extractNode)).
		AddStage(NodeSynthesizing, p.node(NodeSynthesizing, p.synthesizeNode)).
		AddStage(NodeDirect, p.node(NodeDirect, p.directNode)).
		AddEnd(NodeDone, p.doneNode).
		Chain(NodeStart, NodeTransforming, NodePlanning, NodeChecking, NodeRelevancyGate).
		Chain(NodeSearching, NodeExtracting, NodeSynthesizing, NodeDone).
		AddEdge(NodeDirect, NodeDone).
		OnStep(func(_ context.Context, node string, r *run) {
			p.logger.Debug("node complete", "run_id", r.id, "node", node)
		}).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build research graph: %w", err)
	}
	p.graph = g

	p.logger.Info("research pipeline initialised",
		"relevancy_threshold", o.Config.RelevancyThreshold,
		"relevancy_failure_score", o.Config.RelevancyFailureScore,
		"top_k_evidence", o.Config.TopKEvidence,
	)
	return p, nil
}

// Run executes one research run. Stage failures never surface as errors;
// they are replaced by fallbacks and recorded in the trace. An error means
// the pipeline itself is misconfigured.
func (p *Pipeline) Run(ctx context.Context, query string) (*Response, error) {
	r := &run{
		id:    uuid.NewString(),
		state: &State{OriginalQuery: query},
		trace: newTracer(p.opts.Now, p.opts.Observer),
	}

	ctx, span := p.tracer.Start(ctx, "research.run", trace.WithAttributes(
		attribute.String("research.run_id", r.id),
		attribute.String("research.query", trimForLog(query, 200)),
	))

	if strings.TrimSpace(query) == "" {
		started := p.opts.Now()
		r.state.Report = errorReport(started)
		r.trace.fallback(NodeStart, started, ReasonEmptyQuery, nil, "empty query, no stages run")
		p.logger.Warn("empty query", "run_id", r.id)
		telemetry.End(span, nil)
		return p.response(r), nil
	}

	p.logger.Info("research run started", "run_id", r.id, "query", trimForLog(query, 120))
	if _, err := p.graph.Execute(ctx, r); err != nil {
		telemetry.End(span, err)
		return nil, fmt.Errorf("research run %s: %w", r.id, err)
	}
	span.SetAttributes(attribute.Bool("research.llm_generated", r.state.IsLLMGenerated))
	telemetry.End(span, nil)
	return p.response(r), nil
}

func (p *Pipeline) response(r *run) *Response {
	return &Response{RunID: r.id, State: r.state, Trace: r.trace.snapshot()}
}

// node wraps a stage body with a span.
func (p *Pipeline) node(name string, body func(context.Context, *run)) graph.NodeFunc[*run] {
	return func(ctx context.Context, r *run) (*run, error) {
		ctx, span := p.tracer.Start(ctx, "research."+name, trace.WithAttributes(attribute.String("research.run_id", r.id)))
		body(ctx, r)
		telemetry.End(span, nil)
		return r, nil
	}
}

// record logs an outcome, appends its trace entry and tags the stage span.
func record[T any](ctx context.Context, p *Pipeline, r *run, stage string, started time.Time, out Outcome[T], summary string) {
	if out.Fallback {
		telemetry.MarkFallback(trace.SpanFromContext(ctx), out.Reason)
		r.trace.fallback(stage, started, out.Reason, out.Err, summary)
		p.logger.Warn("stage fell back", "run_id", r.id, "stage", stage, "reason", out.Reason, "error", out.Err)
		return
	}
	r.trace.stage(stage, started, summary)
	p.logger.Info("stage complete", "run_id", r.id, "stage", stage, "summary", summary)
}

func (p *Pipeline) transformNode(ctx context.Context, r *run) {
	started := p.opts.Now()
	out := p.transformer.Transform(ctx, r.state.OriginalQuery)
	r.state.TransformedQuery = out.Value
	record(ctx, p, r, StageTransform, started, out, fmt.Sprintf("%q (transformed=%t)", out.Value.Transformed, out.Value.WasTransformed))
}

func (p *Pipeline) planNode(ctx context.Context, r *run) {
	started := p.opts.Now()
	out := p.planner.Plan(ctx, r.state.TransformedQuery)
	r.state.Plan = out.Value
	record(ctx, p, r, StagePlanning, started, out, fmt.Sprintf("%d angles, %d queries", len(out.Value.Angles), len(out.Value.SearchQueries)))
}

func (p *Pipeline) relevancyNode(ctx context.Context, r *run) {
	started := p.opts.Now()
	out := p.checker.Check(ctx, r.state.OriginalQuery, r.state.TransformedQuery, r.state.Plan)
	r.state.Relevancy = out.Value
	record(ctx, p, r, StageRelevancy, started, out, fmt.Sprintf("score %.2f, relevant=%t", out.Value.Score, out.Value.IsRelevant))
}

func (p *Pipeline) relevancyGate(_ context.Context, r *run) (string, error) {
	if r.state.Relevancy.IsRelevant {
		return "research", nil
	}
	return "direct", nil
}

func (p *Pipeline) searchNode(ctx context.Context, r *run) {
	started := p.opts.Now()
	var results []search.Result
	for _, q := range r.state.Plan.SearchQueries {
		results = append(results, p.searcher.Search(ctx, q)...)
	}
	r.state.SearchResults = results
	record(ctx, p, r, StageSearch, started, success(results),
		fmt.Sprintf("%d queries, %d results", len(r.state.Plan.SearchQueries), len(results)))
}

func (p *Pipeline) extractNode(ctx context.Context, r *run) {
	started := p.opts.Now()
	outcomes := p.extractor.ExtractAll(ctx, r.state.TransformedQuery.Transformed, r.state.Plan.FocusAreas, r.state.SearchResults)

	evidence := make([]Evidence, len(outcomes))
	failed := 0
	for i, out := range outcomes {
		evidence[i] = out.Value
		if out.Fallback {
			failed++
			telemetry.MarkFallback(trace.SpanFromContext(ctx), out.Reason)
			r.trace.fallback(StageExtraction, started, out.Reason, out.Err, fmt.Sprintf("item %d: %s", i+1, out.Value.Source))
			p.logger.Warn("evidence extraction fell back", "run_id", r.id, "item", i+1, "source", out.Value.Source, "reason", out.Reason, "error", out.Err)
		}
	}
	r.state.Evidence = evidence
	record(ctx, p, r, StageExtraction, started, success(evidence), fmt.Sprintf("%d evidence items, %d fallbacks", len(evidence), failed))
}

func (p *Pipeline) synthesizeNode(ctx context.Context, r *run) {
	started := p.opts.Now()
	out := p.synthesizer.Synthesize(ctx, r.state.TransformedQuery.Transformed, r.state.Plan, r.state.Evidence)
	r.state.Report = out.Value
	r.state.IsLLMGenerated = false
	record(ctx, p, r, StageSynthesis, started, out, fmt.Sprintf("%d sources referenced", len(r.state.Sources())))
}

func (p *Pipeline) directNode(ctx context.Context, r *run) {
	started := p.opts.Now()
	out := p.direct.Answer(ctx, r.state.OriginalQuery, r.state.Relevancy.Reasoning)
	r.state.Report = out.Value
	r.state.IsLLMGenerated = true
	r.state.Evidence = nil
	record(ctx, p, r, StageDirect, started, out, "answered from model knowledge")
}

func (p *Pipeline) doneNode(_ context.Context, r *run) (*run, error) {
	if strings.TrimSpace(r.state.Report) == "" {
		return r, fmt.Errorf("run finished without a report")
	}
	p.logger.Info("research run completed",
		"run_id", r.id,
		"llm_generated", r.state.IsLLMGenerated,
		"evidence", len(r.state.Evidence),
		"sources", len(r.state.Sources()),
	)
	return r, nil
}
