package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JournalSync/internal/config"
	"JournalSync/internal/domain"
)

func completionServer(t *testing.T, content string, seen *map[string]any) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if seen != nil {
			if err := json.NewDecoder(r.Body).Decode(seen); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIAnalyze(t *testing.T) {
	t.Parallel()

	var payload map[string]any
	srv := completionServer(t, `{"sentiment": 0.8, "keywords": ["fractions"]}`, &payload)
	p := NewOpenAIProvider(config.OpenAIConfig{Endpoint: srv.URL, Model: "gpt-test", APIKey: "secret"})

	got, err := p.Analyze(context.Background(), domain.AnalysisRequest{Text: "Great lesson"})
	require.NoError(t, err)
	assert.InDelta(t, 0.8, got.Sentiment, 1e-9)
	assert.Equal(t, []string{"fractions"}, got.Keywords)
	assert.Equal(t, OpenAIName, got.Source)

	assert.Equal(t, "gpt-test", payload["model"])
	assert.Equal(t, map[string]any{"type": "json_object"}, payload["response_format"])
}

func TestOpenAIAnalyzeBatch(t *testing.T) {
	t.Parallel()

	srv := completionServer(t, `{"results": [{"index": 0, "sentiment": 0.2}, {"index": 1, "sentiment": -0.2}]}`, nil)
	p := NewOpenAIProvider(config.OpenAIConfig{Endpoint: srv.URL, Model: "gpt-test", APIKey: "secret"})

	got, err := p.AnalyzeBatch(context.Background(), []domain.AnalysisRequest{{Text: "a"}, {Text: "b"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.InDelta(t, -0.2, got[1].Sentiment, 1e-9)

	empty, err := p.AnalyzeBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestOpenAIErrors(t *testing.T) {
	t.Parallel()

	srv := completionServer(t, "{}", nil)

	_, err := NewOpenAIProvider(config.OpenAIConfig{Endpoint: srv.URL, Model: "gpt-test", APIKey: "wrong"}).
		Analyze(context.Background(), domain.AnalysisRequest{Text: "x"})
	assert.ErrorContains(t, err, "401")

	_, err = NewOpenAIProvider(config.OpenAIConfig{Endpoint: srv.URL, Model: "gpt-test"}).
		Analyze(context.Background(), domain.AnalysisRequest{Text: "x"})
	assert.ErrorContains(t, err, "misconfigured")
}

func TestOpenAIHonoursContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(srv.Close)

	p := NewOpenAIProvider(config.OpenAIConfig{Endpoint: srv.URL, Model: "gpt-test", APIKey: "secret"})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Analyze(ctx, domain.AnalysisRequest{Text: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}
