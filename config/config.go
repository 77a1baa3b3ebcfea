package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every configuration key looked up in the environment.
const EnvPrefix = "RESEARCH"

// Supported reasoning providers.
const (
	ProviderOpenAI = "openai"
	ProviderClaude = "claude"
	ProviderGemini = "gemini"
)

// Supported report sinks.
const (
	SinkNone     = "none"
	SinkFile     = "file"
	SinkMongo    = "mongo"
	SinkPostgres = "postgres"
)

// Config is the full runtime configuration of the research CLI.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Research  ResearchConfig  `mapstructure:"research"`
	Search    SearchConfig    `mapstructure:"search"`
	Output    OutputConfig    `mapstructure:"output"`
	Runner    RunnerConfig    `mapstructure:"runner"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Log       LogConfig       `mapstructure:"log"`
}

// LLMConfig selects the reasoning backend and its per-tier models.
type LLMConfig struct {
	Provider             string        `mapstructure:"provider"`
	APIKey               string        `mapstructure:"api_key"`
	BaseURL              string        `mapstructure:"base_url"`
	MainModel            string        `mapstructure:"main_model"`
	LightweightModel     string        `mapstructure:"lightweight_model"`
	MainMaxTokens        int           `mapstructure:"main_max_tokens"`
	LightweightMaxTokens int           `mapstructure:"lightweight_max_tokens"`
	Temperature          float64       `mapstructure:"temperature"`
	Timeout              time.Duration `mapstructure:"timeout"`
}

// RateLimitConfig bounds reasoning-backend calls with a sliding window.
// When RedisAddr is set the window is shared across processes.
type RateLimitConfig struct {
	Calls     int           `mapstructure:"calls"`
	Window    time.Duration `mapstructure:"window"`
	RedisAddr string        `mapstructure:"redis_addr"`
	RedisDB   int           `mapstructure:"redis_db"`
	RedisKey  string        `mapstructure:"redis_key"`
}

// ResearchConfig carries the pipeline's tunable constants.
type ResearchConfig struct {
	RelevancyThreshold    float64 `mapstructure:"relevancy_threshold"`
	RelevancyFailureScore float64 `mapstructure:"relevancy_failure_score"`
	NeutralRelevance      float64 `mapstructure:"neutral_relevance"`
	TopKEvidence          int     `mapstructure:"top_k_evidence"`
	SkipWellFormed        bool    `mapstructure:"skip_well_formed"`
	Tokenizer             string  `mapstructure:"tokenizer"`
	PromptsDir            string  `mapstructure:"prompts_dir"`
}

// SearchConfig lists search backends in failover order and their credentials.
type SearchConfig struct {
	Backends     []string      `mapstructure:"backends"`
	MaxResults   int           `mapstructure:"max_results"`
	Timeout      time.Duration `mapstructure:"timeout"`
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	SerperAPIKey string        `mapstructure:"serper_api_key"`
	TavilyAPIKey string        `mapstructure:"tavily_api_key"`
	GoogleAPIKey string        `mapstructure:"google_api_key"`
	GoogleCSEID  string        `mapstructure:"google_cse_id"`
	UserAgent    string        `mapstructure:"user_agent"`
}

// OutputConfig selects where finished reports are emitted. Every sink in
// Sinks receives each report; "file,mongo" in the environment also works.
type OutputConfig struct {
	Sinks              []string `mapstructure:"sink"`
	Dir                string   `mapstructure:"dir"`
	MongoURI           string   `mapstructure:"mongo_uri"`
	MongoDatabase      string   `mapstructure:"mongo_database"`
	MongoCollection    string   `mapstructure:"mongo_collection"`
	PostgresDSN        string   `mapstructure:"postgres_dsn"`
	PostgresTable      string   `mapstructure:"postgres_table"`
	PostgresAutoCreate bool     `mapstructure:"postgres_auto_create"`
}

// Uses reports whether sink is one of the configured sinks.
func (o OutputConfig) Uses(sink string) bool {
	return slices.Contains(o.Sinks, sink)
}

// RunnerConfig bounds concurrent research runs in batch mode.
type RunnerConfig struct {
	MaxConcurrency int `mapstructure:"max_concurrency"`
}

// TelemetryConfig toggles OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

// LogConfig controls the slog handler.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		LLM: LLMConfig{
			Provider:             ProviderOpenAI,
			MainModel:            "gpt-4o",
			LightweightModel:     "gpt-4o-mini",
			MainMaxTokens:        2000,
			LightweightMaxTokens: 500,
			Temperature:          0.3,
			Timeout:              60 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Calls:    20,
			Window:   time.Minute,
			RedisKey: "research:ratelimit",
		},
		Research: ResearchConfig{
			RelevancyThreshold:    0.6,
			RelevancyFailureScore: 0.7,
			NeutralRelevance:      0.5,
			TopKEvidence:          10,
			SkipWellFormed:        true,
			Tokenizer:             "cl100k_base",
		},
		Search: SearchConfig{
			Backends:   []string{"serper", "tavily", "googlecse", "duckduckgo", "wikipedia", "arxiv"},
			MaxResults: 5,
			Timeout:    15 * time.Second,
			CacheTTL:   10 * time.Minute,
			UserAgent:  "ai-research/1.0",
		},
		Output: OutputConfig{
			Sinks:              []string{SinkFile},
			Dir:                "reports",
			MongoDatabase:      "research",
			MongoCollection:    "reports",
			PostgresTable:      "research_reports",
			PostgresAutoCreate: true,
		},
		Runner: RunnerConfig{MaxConcurrency: 2},
		Telemetry: TelemetryConfig{
			ServiceName: "ai-research",
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// envAliases binds conventional provider variables next to the prefixed ones.
var envAliases = map[string][]string{
	"search.serper_api_key": {"SERPER_API_KEY"},
	"search.tavily_api_key": {"TAVILY_API_KEY"},
	"search.google_api_key": {"GOOGLE_API_KEY"},
	"search.google_cse_id":  {"GOOGLE_CSE_ID", "GOOGLE_CX"},
	"ratelimit.redis_addr":  {"REDIS_ADDR"},
	"output.mongo_uri":      {"MONGODB_URI"},
	"output.postgres_dsn":   {"DATABASE_URL"},
}

// providerKeyEnv lists the conventional credential variable for each provider.
var providerKeyEnv = map[string]string{
	ProviderOpenAI: "OPENAI_API_KEY",
	ProviderClaude: "ANTHROPIC_API_KEY",
	ProviderGemini: "GEMINI_API_KEY",
}

// Bind registers defaults, environment lookups and config file search paths on v.
func Bind(v *viper.Viper) {
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range envAliases {
		prefixed := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		_ = v.BindEnv(append([]string{key, prefixed}, names...)...)
	}

	v.SetConfigName("research")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/research")
	v.AddConfigPath("/etc/research")
}

// Load reads the optional config file and unmarshals v into a Config.
// A missing config file is not an error.
func Load(v *viper.Viper) (Config, error) {
	if v.ConfigFileUsed() == "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	} else if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", v.ConfigFileUsed(), err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	if cfg.LLM.APIKey == "" {
		if name, ok := providerKeyEnv[cfg.LLM.Provider]; ok {
			cfg.LLM.APIKey = os.Getenv(name)
		}
	}
	return cfg, nil
}

// Validate checks ranges and enums, and fails when the reasoning backend has no credentials.
func (c Config) Validate() error {
	v := NewValidator()

	v.ValidateOneOf("llm.provider", c.LLM.Provider, ProviderOpenAI, ProviderClaude, ProviderGemini)
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		v.Add("llm.api_key", fmt.Sprintf("no credentials for reasoning provider %q (set %s_LLM_API_KEY or %s)",
			c.LLM.Provider, EnvPrefix, providerKeyEnv[c.LLM.Provider]))
	}
	v.RequireNonEmpty("llm.main_model", c.LLM.MainModel)
	v.RequireNonEmpty("llm.lightweight_model", c.LLM.LightweightModel)
	v.RequirePositive("llm.main_max_tokens", c.LLM.MainMaxTokens)
	v.RequirePositive("llm.lightweight_max_tokens", c.LLM.LightweightMaxTokens)
	v.ValidateFloatRange("llm.temperature", c.LLM.Temperature, 0, 2)
	v.RequirePositiveDuration("llm.timeout", c.LLM.Timeout)

	v.RequirePositive("ratelimit.calls", c.RateLimit.Calls)
	v.RequirePositiveDuration("ratelimit.window", c.RateLimit.Window)
	if c.RateLimit.RedisAddr != "" {
		v.ValidateDBNumber("ratelimit.redis_db", c.RateLimit.RedisDB)
		v.RequireNonEmpty("ratelimit.redis_key", c.RateLimit.RedisKey)
	}

	v.ValidateFloatRange("research.relevancy_threshold", c.Research.RelevancyThreshold, 0, 1)
	v.ValidateFloatRange("research.relevancy_failure_score", c.Research.RelevancyFailureScore, 0, 1)
	v.ValidateFloatRange("research.neutral_relevance", c.Research.NeutralRelevance, 0, 1)
	v.RequirePositive("research.top_k_evidence", c.Research.TopKEvidence)

	if len(c.Search.Backends) == 0 {
		v.Add("search.backends", "at least one search backend is required")
	}
	for _, name := range c.Search.Backends {
		v.ValidateOneOf("search.backends", name, "serper", "tavily", "googlecse", "duckduckgo", "wikipedia", "arxiv")
	}
	v.RequirePositive("search.max_results", c.Search.MaxResults)
	v.RequirePositiveDuration("search.timeout", c.Search.Timeout)

	for _, sink := range c.Output.Sinks {
		v.ValidateOneOf("output.sink", sink, SinkNone, SinkFile, SinkMongo, SinkPostgres)
	}
	if c.Output.Uses(SinkFile) {
		v.RequireNonEmpty("output.dir", c.Output.Dir)
	}
	if c.Output.Uses(SinkMongo) {
		v.RequireNonEmpty("output.mongo_uri", c.Output.MongoURI)
		v.RequireNonEmpty("output.mongo_database", c.Output.MongoDatabase)
		v.RequireNonEmpty("output.mongo_collection", c.Output.MongoCollection)
	}
	if c.Output.Uses(SinkPostgres) {
		v.RequireNonEmpty("output.postgres_dsn", c.Output.PostgresDSN)
		v.RequireNonEmpty("output.postgres_table", c.Output.PostgresTable)
	}

	v.RequirePositive("runner.max_concurrency", c.Runner.MaxConcurrency)
	v.ValidateOneOf("log.level", strings.ToLower(c.Log.Level), "debug", "info", "warn", "error")
	v.ValidateOneOf("log.format", strings.ToLower(c.Log.Format), "json", "text")

	return v.Error()
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("llm.provider", d.LLM.Provider)
	v.SetDefault("llm.api_key", d.LLM.APIKey)
	v.SetDefault("llm.base_url", d.LLM.BaseURL)
	v.SetDefault("llm.main_model", d.LLM.MainModel)
	v.SetDefault("llm.lightweight_model", d.LLM.LightweightModel)
	v.SetDefault("llm.main_max_tokens", d.LLM.MainMaxTokens)
	v.SetDefault("llm.lightweight_max_tokens", d.LLM.LightweightMaxTokens)
	v.SetDefault("llm.temperature", d.LLM.Temperature)
	v.SetDefault("llm.timeout", d.LLM.Timeout)

	v.SetDefault("ratelimit.calls", d.RateLimit.Calls)
	v.SetDefault("ratelimit.window", d.RateLimit.Window)
	v.SetDefault("ratelimit.redis_addr", d.RateLimit.RedisAddr)
	v.SetDefault("ratelimit.redis_db", d.RateLimit.RedisDB)
	v.SetDefault("ratelimit.redis_key", d.RateLimit.RedisKey)

	v.SetDefault("research.relevancy_threshold", d.Research.RelevancyThreshold)
	v.SetDefault("research.relevancy_failure_score", d.Research.RelevancyFailureScore)
	v.SetDefault("research.neutral_relevance", d.Research.NeutralRelevance)
	v.SetDefault("research.top_k_evidence", d.Research.TopKEvidence)
	v.SetDefault("research.skip_well_formed", d.Research.SkipWellFormed)
	v.SetDefault("research.tokenizer", d.Research.Tokenizer)
	v.SetDefault("research.prompts_dir", d.Research.PromptsDir)

	v.SetDefault("search.backends", d.Search.Backends)
	v.SetDefault("search.max_results", d.Search.MaxResults)
	v.SetDefault("search.timeout", d.Search.Timeout)
	v.SetDefault("search.cache_ttl", d.Search.CacheTTL)
	v.SetDefault("search.serper_api_key", d.Search.SerperAPIKey)
	v.SetDefault("search.tavily_api_key", d.Search.TavilyAPIKey)
	v.SetDefault("search.google_api_key", d.Search.GoogleAPIKey)
	v.SetDefault("search.google_cse_id", d.Search.GoogleCSEID)
	v.SetDefault("search.user_agent", d.Search.UserAgent)

	v.SetDefault("output.sink", d.Output.Sinks)
	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.mongo_uri", d.Output.MongoURI)
	v.SetDefault("output.mongo_database", d.Output.MongoDatabase)
	v.SetDefault("output.mongo_collection", d.Output.MongoCollection)
	v.SetDefault("output.postgres_dsn", d.Output.PostgresDSN)
	v.SetDefault("output.postgres_table", d.Output.PostgresTable)
	v.SetDefault("output.postgres_auto_create", d.Output.PostgresAutoCreate)

	v.SetDefault("runner.max_concurrency", d.Runner.MaxConcurrency)
	v.SetDefault("telemetry.enabled", d.Telemetry.Enabled)
	v.SetDefault("telemetry.service_name", d.Telemetry.ServiceName)
	v.SetDefault("telemetry.otlp_endpoint", d.Telemetry.OTLPEndpoint)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}
