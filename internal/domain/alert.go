package domain

import "time"

// AlertCategory names the rule family that produced an alert.
type AlertCategory string

const (
	AlertBurnout  AlertCategory = "burnout"
	AlertSystemic AlertCategory = "systemic"
	// AlertCriticalMass is accepted on read for alerts written by other producers.
	AlertCriticalMass AlertCategory = "critical-mass"
)

// Alert is a write-once systemic-risk signal.
type Alert struct {
	ID        string        `json:"id"`
	Category  AlertCategory `json:"category"`
	Severity  Priority      `json:"severity"`
	Message   string        `json:"message"`
	EntryIDs  []string      `json:"entryIds"`
	ClusterID string        `json:"clusterId,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// AlertFilter selects persisted alerts.
type AlertFilter struct {
	Category     AlertCategory
	CreatedAfter *time.Time
	Limit        int
}
