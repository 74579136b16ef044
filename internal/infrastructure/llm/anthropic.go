package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"JournalSync/internal/config"
	"JournalSync/internal/domain"
	"JournalSync/internal/ports"
)

// AnthropicName is the registry name of the Anthropic provider.
const AnthropicName = "anthropic"

// AnthropicProvider implements ports.AnalysisProvider through the Messages API.
type AnthropicProvider struct {
	client       anthropic.Client
	model        string
	maxTokens    int64
	systemPrompt string
}

var _ ports.AnalysisProvider = (*AnthropicProvider)(nil)

// NewAnthropicProvider builds a client from configuration. Retries are left to
// the analysis scheduler's fallback, so the SDK retry loop is disabled.
func NewAnthropicProvider(cfg config.AnthropicConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic api key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = 512
	}

	return &AnthropicProvider{
		client:       anthropic.NewClient(opts...),
		model:        cfg.Model,
		maxTokens:    maxTokens,
		systemPrompt: cfg.SystemPrompt,
	}, nil
}

func (p *AnthropicProvider) Name() string { return AnthropicName }

// Analyze asks the model for sentiment, keywords and themes of one entry.
func (p *AnthropicProvider) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.Analysis, error) {
	text, err := p.complete(ctx, entryPrompt(req), p.maxTokens)
	if err != nil {
		return domain.Analysis{}, err
	}
	return parseAnalysis(text, AnthropicName)
}

// AnalyzeBatch analyzes several entries in one message.
func (p *AnthropicProvider) AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest) ([]domain.Analysis, error) {
	if len(reqs) == 0 {
		return []domain.Analysis{}, nil
	}
	text, err := p.complete(ctx, batchPrompt(reqs), p.maxTokens*int64(len(reqs)))
	if err != nil {
		return nil, err
	}
	return parseBatch(text, AnthropicName, len(reqs))
}

func (p *AnthropicProvider) complete(ctx context.Context, prompt string, maxTokens int64) (string, error) {
	msg, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: maxTokens,
		System: []anthropic.TextBlockParam{
			{Text: safePrompt(p.systemPrompt)},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text content")
	}
	return b.String(), nil
}
