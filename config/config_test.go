package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errorskg "github.com/sweetpotato0/ai-research/errors"
)

func TestDefaultMatchesPipelineConstants(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 0.6, cfg.Research.RelevancyThreshold)
	assert.Equal(t, 0.7, cfg.Research.RelevancyFailureScore)
	assert.Equal(t, 0.5, cfg.Research.NeutralRelevance)
	assert.Equal(t, 10, cfg.Research.TopKEvidence)
	assert.Equal(t, 2000, cfg.LLM.MainMaxTokens)
	assert.Equal(t, 500, cfg.LLM.LightweightMaxTokens)
	assert.Equal(t, 20, cfg.RateLimit.Calls)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestValidateRequiresReasoningCredentials(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errorskg.ErrConfig))
	assert.Contains(t, err.Error(), "llm.api_key")

	cfg.LLM.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsOutOfRangeValues(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = "sk-test"
	cfg.Research.RelevancyThreshold = 1.5
	cfg.Research.TopKEvidence = 0
	cfg.Search.Backends = []string{"duckduckgo", "altavista"}
	cfg.Output.Sinks = []string{SinkFile, SinkMongo}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "research.relevancy_threshold")
	assert.Contains(t, msg, "research.top_k_evidence")
	assert.Contains(t, msg, "altavista")
	assert.Contains(t, msg, "output.mongo_uri")
}

func TestLoadAppliesEnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RESEARCH_RESEARCH_RELEVANCY_THRESHOLD", "0.75")
	t.Setenv("RESEARCH_RATELIMIT_CALLS", "5")
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("SERPER_API_KEY", "serper-env")

	v := viper.New()
	Bind(v)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, 0.75, cfg.Research.RelevancyThreshold)
	assert.Equal(t, 5, cfg.RateLimit.Calls)
	assert.Equal(t, "sk-env", cfg.LLM.APIKey)
	assert.Equal(t, "serper-env", cfg.Search.SerperAPIKey)
	assert.NoError(t, cfg.Validate())
}

func TestLoadSplitsSinkListFromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("OPENAI_API_KEY", "sk-env")
	t.Setenv("RESEARCH_OUTPUT_SINK", "file,postgres")

	v := viper.New()
	Bind(v)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, []string{SinkFile, SinkPostgres}, cfg.Output.Sinks)
	assert.True(t, cfg.Output.Uses(SinkPostgres))
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output.postgres_dsn")
}

func TestLoadReadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	yaml := []byte(`llm:
  provider: claude
  api_key: from-file
  main_model: claude-sonnet-4-5
  lightweight_model: claude-haiku-4-5
research:
  top_k_evidence: 4
search:
  backends: [wikipedia, arxiv]
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "research.yaml"), yaml, 0o600))

	v := viper.New()
	Bind(v)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ProviderClaude, cfg.LLM.Provider)
	assert.Equal(t, "from-file", cfg.LLM.APIKey)
	assert.Equal(t, 4, cfg.Research.TopKEvidence)
	assert.Equal(t, []string{"wikipedia", "arxiv"}, cfg.Search.Backends)
	assert.Equal(t, 0.6, cfg.Research.RelevancyThreshold)
}
