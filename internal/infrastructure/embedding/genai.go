package embedding

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"JournalSync/internal/config"
	"JournalSync/internal/ports"
)

// GenAIEmbedder generates entry embeddings using Google's Gemini API.
type GenAIEmbedder struct {
	client   *genai.Client
	model    string
	taskType string
}

var _ ports.Embedder = (*GenAIEmbedder)(nil)

// NewGenAIEmbedder creates an embedder from configuration.
func NewGenAIEmbedder(ctx context.Context, cfg config.EmbeddingConfig) (*GenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("genai api key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "gemini-embedding-001"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GenAIEmbedder{
		client:   client,
		model:    model,
		taskType: taskType(cfg.TaskType),
	}, nil
}

func taskType(value string) string {
	switch v := strings.ToUpper(strings.TrimSpace(value)); v {
	case "SEMANTIC_SIMILARITY", "CLASSIFICATION", "CLUSTERING":
		return v
	default:
		return "CLUSTERING"
	}
}

// Embed generates an embedding for a single text.
func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType: e.taskType,
	})
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}

	if len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, fmt.Errorf("genai returned no embeddings")
	}

	return result.Embeddings[0].Values, nil
}
