package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"JournalSync/internal/config"
	"JournalSync/internal/domain"
	"JournalSync/internal/ports"
)

// Name is the registry name of the inference service provider.
const Name = "ml"

// Client talks to an external ML service for sentiment and keyword extraction.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.AnalysisProvider = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.MLConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint: strings.TrimRight(cfg.InferenceURL, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: timeout},
	}
}

func (c *Client) Name() string { return Name }

type contextPayload struct {
	Subject      string   `json:"subject,omitempty"`
	Grade        string   `json:"grade,omitempty"`
	Keywords     []string `json:"keywords"`
	Priority     string   `json:"priority"`
	TeacherCount int      `json:"teacherCount"`
}

type itemPayload struct {
	ID      string         `json:"id,omitempty"`
	Text    string         `json:"text"`
	Context contextPayload `json:"context"`
}

type resultPayload struct {
	Sentiment float64  `json:"sentiment"`
	Keywords  []string `json:"keywords"`
	Themes    []string `json:"themes"`
}

func toItem(req domain.AnalysisRequest) itemPayload {
	return itemPayload{
		ID:   req.EntryID,
		Text: req.Text,
		Context: contextPayload{
			Subject:      req.Context.Subject,
			Grade:        req.Context.Grade,
			Keywords:     req.Context.Keywords,
			Priority:     string(req.Context.Priority),
			TeacherCount: req.Context.TeacherCount,
		},
	}
}

func (r resultPayload) toDomain() domain.Analysis {
	return domain.Analysis{
		Sentiment: r.Sentiment,
		Keywords:  r.Keywords,
		Themes:    r.Themes,
		Source:    Name,
	}
}

// Analyze sends one entry for scoring.
func (c *Client) Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.Analysis, error) {
	var resp resultPayload
	if err := c.post(ctx, "/analyze", toItem(req), &resp); err != nil {
		return domain.Analysis{}, err
	}
	return resp.toDomain(), nil
}

// AnalyzeBatch sends several entries in one request; results come back in request order.
func (c *Client) AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest) ([]domain.Analysis, error) {
	if len(reqs) == 0 {
		return []domain.Analysis{}, nil
	}

	items := make([]itemPayload, len(reqs))
	for i, req := range reqs {
		items[i] = toItem(req)
	}

	var resp struct {
		Results []resultPayload `json:"results"`
	}
	if err := c.post(ctx, "/analyze/batch", map[string]any{"items": items}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) != len(reqs) {
		return nil, fmt.Errorf("batch returned %d results for %d entries", len(resp.Results), len(reqs))
	}

	out := make([]domain.Analysis, len(resp.Results))
	for i, r := range resp.Results {
		out[i] = r.toDomain()
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	if c.endpoint == "" {
		return fmt.Errorf("ml client misconfigured: inference url is empty")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
