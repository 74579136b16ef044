package domain

import "time"

// ClientEntry is an entry as captured offline on a device, before the server assigns an ID.
type ClientEntry struct {
	ClientEntryID string    `json:"clientEntryId"`
	TextContent   string    `json:"textContent,omitempty"`
	Transcript    string    `json:"transcript,omitempty"`
	AudioURL      string    `json:"audioUrl,omitempty"`
	Grade         string    `json:"grade,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	Topic         string    `json:"topic,omitempty"`
	TopicTags     []string  `json:"topicTags,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// SyncBatch is one client-submitted sync call. It only lives for the duration of the call.
type SyncBatch struct {
	AuthorID   string
	DeviceID   string
	Region     string
	LastSyncAt *time.Time
	Entries    []ClientEntry
}

// SyncConflict records a client entry that collided with server state.
type SyncConflict struct {
	ClientID string `json:"clientId"`
	ServerID string `json:"serverId"`
	Reason   string `json:"reason"`
}

// SyncError records a client entry that could not be processed.
type SyncError struct {
	ClientID string `json:"clientId"`
	Error    string `json:"error"`
}

// SyncOutcome aggregates per-entry results. Every input entry lands in exactly one bucket.
type SyncOutcome struct {
	Synced    []string       `json:"synced"`
	Conflicts []SyncConflict `json:"conflicts"`
	Errors    []SyncError    `json:"errors"`
	SyncedAt  time.Time      `json:"syncedAt"`
}

// NewSyncOutcome returns an outcome with empty, non-nil buckets.
func NewSyncOutcome() SyncOutcome {
	return SyncOutcome{
		Synced:    []string{},
		Conflicts: []SyncConflict{},
		Errors:    []SyncError{},
	}
}

// Total is the number of entries accounted for by the outcome.
func (o SyncOutcome) Total() int {
	return len(o.Synced) + len(o.Conflicts) + len(o.Errors)
}
