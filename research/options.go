package research

import (
	"log/slog"
	"time"

	"github.com/sweetpotato0/ai-research/pkg/logging"
	"github.com/sweetpotato0/ai-research/prompt"
)

// Config holds the tunable constants of a research run.
type Config struct {
	RelevancyThreshold    float64 // IsRelevant = score >= threshold
	RelevancyFailureScore float64 // score assumed when the relevancy check fails
	NeutralRelevance      float64 // score given to evidence that could not be extracted
	TopKEvidence          int     // evidence items handed to synthesis
	ReasoningLimit        int     // runes kept from relevancy reasoning

	MinAngles  int
	MaxAngles  int
	MinQueries int
	MaxQueries int

	SnippetTokens  int // budget for a snippet inside the extraction prompt
	FindingRunes   int // clip for evidence text in mechanical reports
	SkipWellFormed bool
}

// DefaultConfig returns the stock constants.
func DefaultConfig() Config {
	return Config{
		RelevancyThreshold:    0.6,
		RelevancyFailureScore: 0.7,
		NeutralRelevance:      0.5,
		TopKEvidence:          10,
		ReasoningLimit:        500,
		MinAngles:             3,
		MaxAngles:             5,
		MinQueries:            1,
		MaxQueries:            8,
		SnippetTokens:         800,
		FindingRunes:          300,
		SkipWellFormed:        true,
	}
}

// TraceObserver receives each trace entry as it is recorded.
type TraceObserver func(TraceEntry)

// Options bundles the collaborators shared by every stage.
type Options struct {
	Config    Config
	Prompts   *prompt.Manager
	Tokenizer prompt.Tokenizer
	Now       func() time.Time
	Logger    *slog.Logger
	Observer  TraceObserver
}

// Option customises stages and the pipeline.
type Option func(*Options)

func applyOptions(opts []Option) *Options {
	o := &Options{
		Config:    DefaultConfig(),
		Tokenizer: prompt.WordTokenizer{},
		Now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	if o.Prompts == nil {
		o.Prompts = prompt.NewDefaultManager()
	}
	if o.Logger == nil {
		o.Logger = logging.WithComponent("research")
	}
	return o
}

// WithConfig replaces all constants at once.
func WithConfig(cfg Config) Option {
	return func(o *Options) { o.Config = cfg }
}

// WithRelevancyThreshold sets the score at or above which a plan counts as relevant.
func WithRelevancyThreshold(v float64) Option {
	return func(o *Options) {
		if v >= 0 && v <= 1 {
			o.Config.RelevancyThreshold = v
		}
	}
}

// WithRelevancyFailureScore sets the score assumed when the relevancy check fails.
func WithRelevancyFailureScore(v float64) Option {
	return func(o *Options) {
		if v >= 0 && v <= 1 {
			o.Config.RelevancyFailureScore = v
		}
	}
}

// WithNeutralRelevance sets the score given to evidence whose extraction failed.
func WithNeutralRelevance(v float64) Option {
	return func(o *Options) {
		if v >= 0 && v <= 1 {
			o.Config.NeutralRelevance = v
		}
	}
}

// WithTopKEvidence caps how many evidence items reach synthesis.
func WithTopKEvidence(k int) Option {
	return func(o *Options) {
		if k > 0 {
			o.Config.TopKEvidence = k
		}
	}
}

// WithPlanBounds sets the accepted number of angles and queries.
func WithPlanBounds(minAngles, maxAngles, minQueries, maxQueries int) Option {
	return func(o *Options) {
		if minAngles > 0 && maxAngles >= minAngles {
			o.Config.MinAngles, o.Config.MaxAngles = minAngles, maxAngles
		}
		if minQueries > 0 && maxQueries >= minQueries {
			o.Config.MinQueries, o.Config.MaxQueries = minQueries, maxQueries
		}
	}
}

// WithWellFormedSkip toggles skipping the transform call for queries that
// already read as research tasks.
func WithWellFormedSkip(enabled bool) Option {
	return func(o *Options) { o.Config.SkipWellFormed = enabled }
}

// WithSnippetTokens sets the token budget for snippets in extraction prompts.
func WithSnippetTokens(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Config.SnippetTokens = n
		}
	}
}

// WithPrompts swaps the prompt templates.
func WithPrompts(m *prompt.Manager) Option {
	return func(o *Options) { o.Prompts = m }
}

// WithTokenizer sets the tokenizer used for prompt budgeting.
func WithTokenizer(t prompt.Tokenizer) Option {
	return func(o *Options) {
		if t != nil {
			o.Tokenizer = t
		}
	}
}

// WithClock overrides the time source for trace entries and report dates.
func WithClock(now func() time.Time) Option {
	return func(o *Options) {
		if now != nil {
			o.Now = now
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Options) { o.Logger = l }
}

// WithTraceObserver registers a callback for trace entries.
func WithTraceObserver(fn TraceObserver) Option {
	return func(o *Options) { o.Observer = fn }
}
