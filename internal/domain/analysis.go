package domain

// AnalysisKind distinguishes single-entry and batch provider requests; it is part of the cache key.
type AnalysisKind string

const (
	KindEntry AnalysisKind = "entry"
	KindBatch AnalysisKind = "batch"
)

// AnalysisContext is the closed set of context fields providers may use.
type AnalysisContext struct {
	Subject      string
	Grade        string
	Keywords     []string
	Priority     Priority
	TeacherCount int
}

// NewAnalysisContext derives the provider context of an entry, filling defaults for absent fields.
func NewAnalysisContext(e Entry) AnalysisContext {
	keywords := e.Context.Tags
	if keywords == nil {
		keywords = []string{}
	}
	return AnalysisContext{
		Subject:      e.Context.Subject,
		Grade:        e.Context.Grade,
		Keywords:     keywords,
		Priority:     PriorityLow,
		TeacherCount: 1,
	}
}

// AnalysisRequest is the input to an AnalysisProvider.
type AnalysisRequest struct {
	EntryID string
	Text    string
	Context AnalysisContext
}

// Analysis is the provider result for one entry.
type Analysis struct {
	Sentiment float64  `json:"sentiment"`
	Keywords  []string `json:"keywords"`
	Themes    []string `json:"themes,omitempty"`
	// Source names the provider that produced the result.
	Source string `json:"source,omitempty"`
}
