package domain

import "time"

// Priority ranks clusters and alert severities.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Rank orders priorities Low < Medium < High < Critical.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityCritical:
		return 4
	default:
		return 0
	}
}

// Cluster groups entries judged thematically similar.
type Cluster struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Keywords []string `json:"keywords"`
	Priority Priority `json:"priority"`
	EntryIDs []string `json:"entryIds"`
	// Sentiment is the mean over analyzed members; nil when no member carries a score.
	Sentiment  *float64  `json:"sentiment,omitempty"`
	Confidence float64   `json:"confidence"`
	Active     bool      `json:"active"`
	Region     string    `json:"region,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Size is the member count.
func (c Cluster) Size() int {
	return len(c.EntryIDs)
}

// ClusterFilter selects persisted clusters.
type ClusterFilter struct {
	ActiveOnly    bool
	Region        string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
	MinMembers    int
	Limit         int
}

// Window bounds a clustering or alert run. Zero values mean "no bound".
type Window struct {
	Region     string     `json:"region,omitempty"`
	Start      *time.Time `json:"startDate,omitempty"`
	End        *time.Time `json:"endDate,omitempty"`
	MinEntries int        `json:"minEntries,omitempty"`
}
