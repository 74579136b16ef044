package heuristic

import (
	"context"
	"reflect"
	"testing"

	"JournalSync/internal/domain"
)

func TestSentimentPositiveLesson(t *testing.T) {
	t.Parallel()

	got := Sentiment("Great lesson today, students understood fractions well.")
	if got <= 0 {
		t.Fatalf("expected positive sentiment, got %v", got)
	}
}

func TestSentimentRange(t *testing.T) {
	t.Parallel()

	cases := map[string]float64{
		"":                                  0,
		"we covered chapter four":           0,
		"exhausted and overwhelmed":         -1,
		"great progress":                    1,
		"great day but exhausted and tired": -1.0 / 3,
	}
	for text, want := range cases {
		if got := Sentiment(text); got != want {
			t.Fatalf("Sentiment(%q) = %v, want %v", text, got, want)
		}
	}
}

func TestKeywordsByFrequency(t *testing.T) {
	t.Parallel()

	text := "Fractions again. Students confused fractions with decimals; decimals and fractions."
	got := Keywords(text, 2)
	want := []string{"fractions", "decimals"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Keywords = %v, want %v", got, want)
	}
}

func TestKeywordsSkipShortAndStopWords(t *testing.T) {
	t.Parallel()

	got := Keywords("the cat and the dog were there", 5)
	if len(got) != 0 {
		t.Fatalf("expected no keywords, got %v", got)
	}
	if got == nil {
		t.Fatalf("expected empty slice, got nil")
	}
}

func TestProviderBatch(t *testing.T) {
	t.Parallel()

	p := NewProvider(0)
	if p.Name() != Name {
		t.Fatalf("unexpected name %s", p.Name())
	}

	results, err := p.AnalyzeBatch(context.Background(), []domain.AnalysisRequest{
		{EntryID: "a", Text: "great progress with reading"},
		{EntryID: "b", Text: "exhausted"},
	})
	if err != nil {
		t.Fatalf("AnalyzeBatch: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Sentiment != 1 || results[1].Sentiment != -1 {
		t.Fatalf("unexpected sentiments: %v, %v", results[0].Sentiment, results[1].Sentiment)
	}
	if results[0].Source != Name {
		t.Fatalf("unexpected source %q", results[0].Source)
	}
}
