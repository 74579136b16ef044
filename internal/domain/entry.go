package domain

import "time"

// EntryStatus enumerates the analysis lifecycle of a journal entry.
type EntryStatus string

const (
	StatusSubmitted EntryStatus = "submitted"
	StatusAnalyzed  EntryStatus = "analyzed"
	StatusClustered EntryStatus = "clustered"
)

// Rank orders statuses so callers can check forward-only transitions.
func (s EntryStatus) Rank() int {
	switch s {
	case StatusSubmitted:
		return 1
	case StatusAnalyzed:
		return 2
	case StatusClustered:
		return 3
	default:
		return 0
	}
}

// Valid reports whether s is a known status.
func (s EntryStatus) Valid() bool {
	return s.Rank() > 0
}

// CanAdvanceTo reports whether moving from s to next keeps the status monotonic.
func (s EntryStatus) CanAdvanceTo(next EntryStatus) bool {
	return next.Rank() > s.Rank()
}

// EntryContext carries the structured classroom context a worker attaches to an entry.
type EntryContext struct {
	Grade   string   `json:"grade,omitempty"`
	Subject string   `json:"subject,omitempty"`
	Topic   string   `json:"topic,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

// Entry is one journal/reflection record persisted on the server.
type Entry struct {
	ID            string       `json:"id"`
	ClientEntryID string       `json:"clientEntryId"`
	AuthorID      string       `json:"authorId"`
	DeviceID      string       `json:"deviceId,omitempty"`
	Region        string       `json:"region,omitempty"`
	TextContent   string       `json:"textContent,omitempty"`
	Transcript    string       `json:"transcript,omitempty"`
	AudioURL      string       `json:"audioUrl,omitempty"`
	Content       string       `json:"content"`
	Context       EntryContext `json:"context"`
	Status        EntryStatus  `json:"status"`
	// Sentiment is nil until analysis completes; nil means "not yet analyzed", never neutral.
	Sentiment  *float64   `json:"sentiment,omitempty"`
	Keywords   []string   `json:"keywords,omitempty"`
	Embedding  []float32  `json:"-"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
	AnalyzedAt *time.Time `json:"analyzedAt,omitempty"`
}

// Analyzed reports whether sentiment and keywords have been derived for the entry.
func (e Entry) Analyzed() bool {
	return e.Sentiment != nil
}

// EntryFilter selects entries from the store.
type EntryFilter struct {
	AuthorID     string
	Statuses     []EntryStatus
	Region       string
	CreatedAfter *time.Time
	// CreatedBefore is exclusive.
	CreatedBefore *time.Time
	UpdatedAfter  *time.Time
	Limit         int
	// Newest keeps the most recent Limit entries instead of the oldest.
	// Results are still returned oldest first.
	Newest bool
}

// Author tracks device activity for one journal author.
type Author struct {
	ID           string
	LastDeviceID string
	LastActiveAt time.Time
}
