package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JournalSync/internal/config"
	"JournalSync/internal/domain"
)

func TestNewAnthropicProviderRequiresKey(t *testing.T) {
	t.Parallel()

	_, err := NewAnthropicProvider(config.AnthropicConfig{Model: "claude-test"})
	assert.Error(t, err)
}

func TestAnthropicAnalyze(t *testing.T) {
	t.Parallel()

	var request map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"model": "claude-test",
			"content": [{"type": "text", "text": "{\"sentiment\": -0.4, \"keywords\": [\"marking\"]}"}],
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 12}
		}`))
	}))
	t.Cleanup(srv.Close)

	p, err := NewAnthropicProvider(config.AnthropicConfig{
		BaseURL: srv.URL,
		Model:   "claude-test",
		APIKey:  "secret",
	})
	require.NoError(t, err)
	assert.Equal(t, AnthropicName, p.Name())

	got, err := p.Analyze(context.Background(), domain.AnalysisRequest{Text: "Marking until midnight"})
	require.NoError(t, err)
	assert.InDelta(t, -0.4, got.Sentiment, 1e-9)
	assert.Equal(t, []string{"marking"}, got.Keywords)
	assert.Equal(t, AnthropicName, got.Source)

	assert.Equal(t, "claude-test", request["model"])
	assert.EqualValues(t, 512, request["max_tokens"])
}

func TestAnthropicSurfacesAPIErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"overloaded_error","message":"busy"}}`))
	}))
	t.Cleanup(srv.Close)

	p, err := NewAnthropicProvider(config.AnthropicConfig{BaseURL: srv.URL, Model: "claude-test", APIKey: "secret"})
	require.NoError(t, err)

	_, err = p.Analyze(context.Background(), domain.AnalysisRequest{Text: "x"})
	assert.ErrorContains(t, err, "anthropic messages")
}
