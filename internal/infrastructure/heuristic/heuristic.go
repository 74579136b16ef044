// Package heuristic is the deterministic, dependency-free analysis fallback.
//
// It scores sentiment by counting lexicon hits and extracts keywords by term
// frequency. It exists so the pipeline always makes progress when the live
// provider is unreachable; it is not a replacement for provider-grade analysis.
package heuristic

import (
	"context"
	"sort"

	"JournalSync/internal/domain"
	"JournalSync/internal/ports"
	"JournalSync/internal/textnorm"
)

// Name is the registry name of the heuristic provider.
const Name = "heuristic"

const defaultKeywordCount = 5

var positiveLexicon = map[string]struct{}{
	"great": {}, "good": {}, "well": {}, "excellent": {}, "understood": {},
	"engaged": {}, "happy": {}, "progress": {}, "success": {}, "successful": {},
	"improved": {}, "improving": {}, "enjoyed": {}, "love": {}, "excited": {},
	"confident": {}, "helpful": {}, "proud": {}, "clear": {}, "wonderful": {},
	"motivated": {}, "supportive": {}, "celebrate": {}, "breakthrough": {},
}

var negativeLexicon = map[string]struct{}{
	"bad": {}, "poor": {}, "struggle": {}, "struggled": {}, "struggling": {},
	"difficult": {}, "confused": {}, "frustrated": {}, "frustrating": {},
	"tired": {}, "exhausted": {}, "overwhelmed": {}, "stressed": {}, "angry": {},
	"failed": {}, "failing": {}, "absent": {}, "disruptive": {}, "worried": {},
	"unsafe": {}, "lack": {}, "shortage": {}, "burnout": {}, "hopeless": {},
	"crowded": {}, "broken": {},
}

var stopWords = map[string]struct{}{
	"the": {}, "and": {}, "that": {}, "this": {}, "with": {}, "from": {},
	"have": {}, "were": {}, "they": {}, "their": {}, "there": {}, "what": {},
	"when": {}, "which": {}, "about": {}, "into": {}, "today": {}, "very": {},
	"some": {}, "been": {}, "will": {}, "would": {}, "could": {}, "should": {},
	"because": {}, "again": {}, "after": {}, "before": {}, "class": {},
	"students": {}, "student": {}, "lesson": {}, "also": {}, "just": {},
	"more": {}, "most": {}, "than": {}, "them": {}, "then": {}, "only": {},
	"really": {}, "still": {}, "while": {}, "each": {}, "many": {}, "much": {},
}

// Sentiment scores text in [-1, 1] as (pos - neg) / (pos + neg); text
// without lexicon hits scores 0.
func Sentiment(text string) float64 {
	var pos, neg int
	for _, tok := range textnorm.Tokens(text) {
		if _, ok := positiveLexicon[tok]; ok {
			pos++
		}
		if _, ok := negativeLexicon[tok]; ok {
			neg++
		}
	}
	if pos+neg == 0 {
		return 0
	}
	return clamp(float64(pos-neg) / float64(pos+neg))
}

// Keywords returns up to n of the most frequent content words, ties broken by first appearance.
func Keywords(text string, n int) []string {
	if n <= 0 {
		n = defaultKeywordCount
	}

	counts := map[string]int{}
	var order []string
	for _, tok := range textnorm.Tokens(text) {
		if len([]rune(tok)) < 4 {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if counts[tok] == 0 {
			order = append(order, tok)
		}
		counts[tok]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > n {
		order = order[:n]
	}
	if order == nil {
		return []string{}
	}
	return order
}

func clamp(v float64) float64 {
	switch {
	case v > 1:
		return 1
	case v < -1:
		return -1
	default:
		return v
	}
}

// Provider adapts the heuristics to ports.AnalysisProvider.
type Provider struct {
	keywordCount int
}

var _ ports.AnalysisProvider = (*Provider)(nil)

// NewProvider builds the fallback provider; keywordCount defaults to 5.
func NewProvider(keywordCount int) *Provider {
	if keywordCount <= 0 {
		keywordCount = defaultKeywordCount
	}
	return &Provider{keywordCount: keywordCount}
}

// Name identifies the provider inside the registry.
func (p *Provider) Name() string {
	return Name
}

// Analyze never fails and never blocks.
func (p *Provider) Analyze(_ context.Context, req domain.AnalysisRequest) (domain.Analysis, error) {
	return domain.Analysis{
		Sentiment: Sentiment(req.Text),
		Keywords:  Keywords(req.Text, p.keywordCount),
		Source:    Name,
	}, nil
}

// AnalyzeBatch analyzes each request independently.
func (p *Provider) AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest) ([]domain.Analysis, error) {
	out := make([]domain.Analysis, len(reqs))
	for i, req := range reqs {
		out[i], _ = p.Analyze(ctx, req)
	}
	return out, nil
}
