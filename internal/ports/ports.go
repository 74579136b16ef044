package ports

import (
	"context"
	"time"

	"JournalSync/internal/domain"
)

// EntryStore persists journal entries and author activity.
type EntryStore interface {
	// CreateEntry inserts a new entry; it returns domain.ErrDuplicateEntry when
	// the (author, client entry) pair already exists.
	CreateEntry(ctx context.Context, entry domain.Entry) error
	GetEntry(ctx context.Context, id string) (domain.Entry, error)
	FindByClientID(ctx context.Context, authorID, clientEntryID string) (domain.Entry, error)
	// LatestForAuthor returns the author's most recently updated entry, or nil when there is none.
	LatestForAuthor(ctx context.Context, authorID string) (*domain.Entry, error)
	ListEntries(ctx context.Context, filter domain.EntryFilter) ([]domain.Entry, error)
	// UpdateAnalysis stores analysis output and advances submitted entries to analyzed.
	UpdateAnalysis(ctx context.Context, id string, analysis domain.Analysis, embedding []float32, at time.Time) error
	// MarkClustered advances entries to clustered; already clustered entries are left untouched.
	MarkClustered(ctx context.Context, ids []string, at time.Time) error
	TouchAuthor(ctx context.Context, authorID, deviceID string, at time.Time) error
}

// ClusterStore persists clusters and their memberships.
type ClusterStore interface {
	// SaveCluster upserts the cluster row and its (cluster, entry) memberships.
	SaveCluster(ctx context.Context, cluster domain.Cluster) error
	ListClusters(ctx context.Context, filter domain.ClusterFilter) ([]domain.Cluster, error)
}

// AlertStore persists write-once alerts.
type AlertStore interface {
	SaveAlerts(ctx context.Context, alerts []domain.Alert) error
	ListAlerts(ctx context.Context, filter domain.AlertFilter) ([]domain.Alert, error)
}

// Store bundles every persistence port implemented by a storage adapter.
type Store interface {
	EntryStore
	ClusterStore
	AlertStore
	Close() error
}

// AnalysisProvider derives sentiment and keywords from entry text.
type AnalysisProvider interface {
	Name() string
	Analyze(ctx context.Context, req domain.AnalysisRequest) (domain.Analysis, error)
	AnalyzeBatch(ctx context.Context, reqs []domain.AnalysisRequest) ([]domain.Analysis, error)
}

// AnalysisCache stores serialized provider results with a TTL.
type AnalysisCache interface {
	// Get reports ok=false on a miss; an error means the backend itself failed.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

// Embedder produces vector embeddings for entry text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// TaskQueue accepts fire-and-forget analysis work.
type TaskQueue interface {
	// Enqueue schedules analysis of an entry and returns immediately.
	Enqueue(entryID string)
}

// Scheduler controls when periodic jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
