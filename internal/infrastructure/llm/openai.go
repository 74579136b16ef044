package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"JournalSync/internal/config"
	"JournalSync/internal/domain"
	"JournalSync/internal/ports"
)

// OpenAIName is the registry name of the OpenAI-compatible provider.
const OpenAIName = "openai"

// OpenAIProvider implements ports.AnalysisProvider backed by OpenAI-compatible chat completion APIs.
type OpenAIProvider struct {
	endpoint     string
	model        string
	apiKey       string
	systemPrompt string
	httpClient   *http.Client
}

var _ ports.AnalysisProvider = (*OpenAIProvider)(nil)

// NewOpenAIProvider builds a client from configuration.
func NewOpenAIProvider(cfg config.OpenAIConfig) *OpenAIProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &OpenAIProvider{
		endpoint:     cfg.Endpoint,
		model:        cfg.Model,
		apiKey:       cfg.APIKey,
		systemPrompt: cfg.SystemPrompt,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *OpenAIProvider) Name() string { return OpenAIName }

// Analyze asks the model for sentiment, keywords and themes of one entry.
func (c *OpenAIProvider) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.Analysis, error) {
	text, err := c.complete(ctx, entryPrompt(req))
	if err != nil {
		return domain.Analysis{}, err
	}
	return parseAnalysis(text, OpenAIName)
}

// AnalyzeBatch analyzes several entries in one completion.
func (c *OpenAIProvider) AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest) ([]domain.Analysis, error) {
	if len(reqs) == 0 {
		return []domain.Analysis{}, nil
	}
	text, err := c.complete(ctx, batchPrompt(reqs))
	if err != nil {
		return nil, err
	}
	return parseBatch(text, OpenAIName, len(reqs))
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (c *OpenAIProvider) complete(ctx context.Context, prompt string) (string, error) {
	if c == nil {
		return "", fmt.Errorf("openai client is nil")
	}
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("openai client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model": c.model,
		"messages": []map[string]string{
			{"role": "system", "content": safePrompt(c.systemPrompt)},
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]string{"type": "json_object"},
		"temperature":     0,
	})
	if err != nil {
		return "", fmt.Errorf("marshal openai payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send completion: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode completion: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	return decoded.Choices[0].Message.Content, nil
}
