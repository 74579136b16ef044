package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"JournalSync/internal/domain"
)

const defaultSystemPrompt = "You analyze short teacher reflection journal entries. " +
	"Reply with JSON only, no prose."

var errNoJSON = errors.New("response carries no JSON object")

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return defaultSystemPrompt
	}
	return prompt
}

func entryPrompt(req domain.AnalysisRequest) string {
	var b strings.Builder
	b.WriteString("Analyze the journal entry below.\n")
	writeContext(&b, req.Context)
	b.WriteString(`Return {"sentiment": number between -1 and 1, "keywords": [up to 5 lowercase words], "themes": [short phrases]}.`)
	b.WriteString("\n\nEntry:\n")
	b.WriteString(req.Text)
	return b.String()
}

func batchPrompt(reqs []domain.AnalysisRequest) string {
	var b strings.Builder
	b.WriteString("Analyze each numbered journal entry below independently.\n")
	b.WriteString(`Return {"results": [{"index": n, "sentiment": number between -1 and 1, "keywords": [up to 5 lowercase words], "themes": [short phrases]}]} with one result per entry.`)
	b.WriteString("\n")
	for i, req := range reqs {
		fmt.Fprintf(&b, "\n[%d]", i)
		if req.Context.Subject != "" {
			fmt.Fprintf(&b, " (subject: %s)", req.Context.Subject)
		}
		b.WriteString("\n")
		b.WriteString(req.Text)
		b.WriteString("\n")
	}
	return b.String()
}

func writeContext(b *strings.Builder, ctx domain.AnalysisContext) {
	if ctx.Subject != "" {
		fmt.Fprintf(b, "Subject: %s\n", ctx.Subject)
	}
	if ctx.Grade != "" {
		fmt.Fprintf(b, "Grade: %s\n", ctx.Grade)
	}
	if len(ctx.Keywords) > 0 {
		fmt.Fprintf(b, "Teacher tags: %s\n", strings.Join(ctx.Keywords, ", "))
	}
}

type analysisPayload struct {
	Index     int      `json:"index"`
	Sentiment float64  `json:"sentiment"`
	Keywords  []string `json:"keywords"`
	Themes    []string `json:"themes"`
}

func (p analysisPayload) toDomain(source string) domain.Analysis {
	return domain.Analysis{
		Sentiment: p.Sentiment,
		Keywords:  p.Keywords,
		Themes:    p.Themes,
		Source:    source,
	}
}

// extractJSON returns the outermost {...} span; models sometimes wrap JSON in code fences.
func extractJSON(text string) ([]byte, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return nil, errNoJSON
	}
	return []byte(text[start : end+1]), nil
}

func parseAnalysis(text, source string) (domain.Analysis, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return domain.Analysis{}, err
	}
	var payload analysisPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return domain.Analysis{}, fmt.Errorf("decode analysis: %w", err)
	}
	return payload.toDomain(source), nil
}

func parseBatch(text, source string, n int) ([]domain.Analysis, error) {
	raw, err := extractJSON(text)
	if err != nil {
		return nil, err
	}
	var payload struct {
		Results []analysisPayload `json:"results"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode batch analysis: %w", err)
	}

	out := make([]domain.Analysis, n)
	seen := make([]bool, n)
	for _, r := range payload.Results {
		if r.Index < 0 || r.Index >= n || seen[r.Index] {
			continue
		}
		out[r.Index] = r.toDomain(source)
		seen[r.Index] = true
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("batch analysis missing result for entry %d", i)
		}
	}
	return out, nil
}
