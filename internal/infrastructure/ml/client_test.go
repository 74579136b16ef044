package ml

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

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(config.MLConfig{InferenceURL: srv.URL + "/", APIKey: "token"})
}

func TestAnalyze(t *testing.T) {
	t.Parallel()

	var got itemPayload
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/analyze" || r.Header.Get("Authorization") != "Bearer token" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(resultPayload{Sentiment: 0.3, Keywords: []string{"reading"}})
	})

	result, err := client.Analyze(context.Background(), domain.AnalysisRequest{
		EntryID: "e1",
		Text:    "Reading groups went fine",
		Context: domain.AnalysisContext{Subject: "English", Keywords: []string{}, Priority: domain.PriorityLow, TeacherCount: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.Analysis{Sentiment: 0.3, Keywords: []string{"reading"}, Source: Name}, result)

	assert.Equal(t, "e1", got.ID)
	assert.Equal(t, "English", got.Context.Subject)
	assert.Equal(t, "low", got.Context.Priority)
	assert.Equal(t, 1, got.Context.TeacherCount)
}

func TestAnalyzeBatch(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Items []itemPayload `json:"items"`
		}
		if r.URL.Path != "/analyze/batch" || json.NewDecoder(r.Body).Decode(&body) != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		results := make([]resultPayload, len(body.Items))
		for i, item := range body.Items {
			results[i] = resultPayload{Keywords: []string{item.Text}}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"results": results})
	})

	got, err := client.AnalyzeBatch(context.Background(), []domain.AnalysisRequest{{Text: "one"}, {Text: "two"}})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []string{"two"}, got[1].Keywords)
}

func TestAnalyzeBatchCountMismatch(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"results": [{"sentiment": 0}]}`))
	})

	_, err := client.AnalyzeBatch(context.Background(), []domain.AnalysisRequest{{Text: "one"}, {Text: "two"}})
	assert.ErrorContains(t, err, "1 results for 2 entries")
}

func TestAnalyzeStatusError(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Analyze(context.Background(), domain.AnalysisRequest{Text: "x"})
	assert.ErrorContains(t, err, "502")
}

func TestMisconfigured(t *testing.T) {
	t.Parallel()

	_, err := NewClient(config.MLConfig{}).Analyze(context.Background(), domain.AnalysisRequest{Text: "x"})
	assert.ErrorContains(t, err, "misconfigured")
}
