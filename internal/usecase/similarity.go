package usecase

import (
	"math"
	"strings"

	"JournalSync/internal/domain"
)

const (
	subjectBoost = 0.2
	gradeBoost   = 0.1
)

// Similarity scores two entries in [0, 1]: Jaccard over keyword sets (or cosine
// over embeddings when useEmbeddings is set and both carry one), plus 0.2 for
// a shared subject and 0.1 for a shared grade, capped at 1.
func Similarity(a, b domain.Entry, useEmbeddings bool) float64 {
	base := Jaccard(a.Keywords, b.Keywords)
	if useEmbeddings && len(a.Embedding) > 0 && len(a.Embedding) == len(b.Embedding) {
		base = math.Max(0, CosineSimilarity(a.Embedding, b.Embedding))
	}

	score := base
	if sameField(a.Context.Subject, b.Context.Subject) {
		score += subjectBoost
	}
	if sameField(a.Context.Grade, b.Context.Grade) {
		score += gradeBoost
	}
	return math.Min(1, score)
}

// Jaccard is |A∩B| / |A∪B| over case-insensitive keyword sets; two empty sets score 0.
func Jaccard(a, b []string) float64 {
	setA := keywordSet(a)
	setB := keywordSet(b)
	if len(setA) == 0 && len(setB) == 0 {
		return 0
	}

	shared := 0
	for kw := range setA {
		if _, ok := setB[kw]; ok {
			shared++
		}
	}
	union := len(setA) + len(setB) - shared
	return float64(shared) / float64(union)
}

// CosineSimilarity computes similarity between two vectors of equal length.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func keywordSet(keywords []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			set[kw] = struct{}{}
		}
	}
	return set
}

func sameField(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}
