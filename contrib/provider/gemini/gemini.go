package gemini

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/sweetpotato0/ai-research/llm"
	"github.com/sweetpotato0/ai-research/message"
)

// Config holds Gemini provider configuration
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// DefaultConfig returns default Gemini configuration
func DefaultConfig(apiKey string) *Config {
	return &Config{
		APIKey:      apiKey,
		Model:       "gemini-1.5-flash",
		MaxTokens:   2000,
		Temperature: 0.3,
	}
}

// Provider implements llm.Provider for Google Gemini
type Provider struct {
	config *Config
	client *genai.Client
}

// New creates a new Gemini provider. The client holds a connection pool and
// must be released with Close.
func New(ctx context.Context, config *Config) (*Provider, error) {
	if config == nil {
		config = DefaultConfig("")
	}
	if config.Model == "" {
		config.Model = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(config.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	return &Provider{config: config, client: client}, nil
}

// Name identifies the provider and model in logs and errors.
func (p *Provider) Name() string {
	return "gemini/" + p.config.Model
}

// Generate implements llm.Provider
func (p *Provider) Generate(ctx context.Context, req *llm.GenerateRequest) (*llm.GenerateResponse, error) {
	if req == nil {
		return nil, fmt.Errorf("generate request cannot be nil")
	}

	model := p.client.GenerativeModel(p.config.Model)
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = p.config.MaxTokens
	}
	if maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}
	if p.config.Temperature > 0 {
		model.SetTemperature(p.config.Temperature)
	}

	system, turns := message.Split(req.Messages)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	parts := make([]genai.Part, 0, len(turns))
	for _, msg := range turns {
		parts = append(parts, genai.Text(msg.Content))
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("gemini: no user content")
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}

	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
		break
	}
	if text.Len() == 0 {
		return nil, fmt.Errorf("no candidates returned from Gemini")
	}

	return &llm.GenerateResponse{
		Message: message.NewMessage(message.RoleAssistant, text.String()),
	}, nil
}

// Close releases the underlying client.
func (p *Provider) Close() error {
	return p.client.Close()
}
