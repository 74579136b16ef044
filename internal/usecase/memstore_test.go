package usecase_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"JournalSync/internal/domain"
)

// memStore is an in-memory EntryStore, ClusterStore and AlertStore with failure injection.
type memStore struct {
	mu       sync.Mutex
	entries  map[string]domain.Entry
	clusters map[string]domain.Cluster
	alerts   []domain.Alert
	authors  map[string]domain.Author

	failCreate map[string]error // keyed by client entry ID
	failLatest error
	failUpdate error
	failSave   error
}

func newMemStore() *memStore {
	return &memStore{
		entries:    map[string]domain.Entry{},
		clusters:   map[string]domain.Cluster{},
		authors:    map[string]domain.Author{},
		failCreate: map[string]error{},
	}
}

func (s *memStore) CreateEntry(_ context.Context, entry domain.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failCreate[entry.ClientEntryID]; err != nil {
		return err
	}
	for _, e := range s.entries {
		if e.AuthorID == entry.AuthorID && e.ClientEntryID == entry.ClientEntryID {
			return domain.ErrDuplicateEntry
		}
	}
	s.entries[entry.ID] = entry
	return nil
}

func (s *memStore) GetEntry(_ context.Context, id string) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return domain.Entry{}, domain.ErrNotFound
	}
	return e, nil
}

func (s *memStore) FindByClientID(_ context.Context, authorID, clientEntryID string) (domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.AuthorID == authorID && e.ClientEntryID == clientEntryID {
			return e, nil
		}
	}
	return domain.Entry{}, domain.ErrNotFound
}

func (s *memStore) LatestForAuthor(_ context.Context, authorID string) (*domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLatest != nil {
		return nil, s.failLatest
	}
	var latest *domain.Entry
	for _, e := range s.entries {
		if e.AuthorID != authorID {
			continue
		}
		if latest == nil || e.UpdatedAt.After(latest.UpdatedAt) {
			e := e
			latest = &e
		}
	}
	return latest, nil
}

func (s *memStore) ListEntries(_ context.Context, f domain.EntryFilter) ([]domain.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Entry
	for _, e := range s.entries {
		if f.AuthorID != "" && e.AuthorID != f.AuthorID {
			continue
		}
		if len(f.Statuses) > 0 && !hasStatus(f.Statuses, e.Status) {
			continue
		}
		if f.Region != "" && e.Region != f.Region {
			continue
		}
		if f.CreatedAfter != nil && e.CreatedAt.Before(*f.CreatedAfter) {
			continue
		}
		if f.CreatedBefore != nil && !e.CreatedAt.Before(*f.CreatedBefore) {
			continue
		}
		if f.UpdatedAfter != nil && !e.UpdatedAt.After(*f.UpdatedAfter) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		if f.Newest {
			out = out[len(out)-f.Limit:]
		} else {
			out = out[:f.Limit]
		}
	}
	return out, nil
}

func hasStatus(statuses []domain.EntryStatus, st domain.EntryStatus) bool {
	for _, s := range statuses {
		if s == st {
			return true
		}
	}
	return false
}

func (s *memStore) UpdateAnalysis(_ context.Context, id string, a domain.Analysis, embedding []float32, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate != nil {
		return s.failUpdate
	}
	e, ok := s.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	sentiment := a.Sentiment
	e.Sentiment = &sentiment
	e.Keywords = a.Keywords
	e.Embedding = embedding
	e.AnalyzedAt = &at
	if e.Status == domain.StatusSubmitted {
		e.Status = domain.StatusAnalyzed
	}
	s.entries[id] = e
	return nil
}

func (s *memStore) MarkClustered(_ context.Context, ids []string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		e, ok := s.entries[id]
		if !ok || !e.Status.CanAdvanceTo(domain.StatusClustered) {
			continue
		}
		e.Status = domain.StatusClustered
		s.entries[id] = e
	}
	return nil
}

func (s *memStore) TouchAuthor(_ context.Context, authorID, deviceID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.authors[authorID] = domain.Author{ID: authorID, LastDeviceID: deviceID, LastActiveAt: at}
	return nil
}

func (s *memStore) SaveCluster(_ context.Context, c domain.Cluster) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSave != nil {
		return s.failSave
	}
	s.clusters[c.ID] = c
	return nil
}

func (s *memStore) ListClusters(_ context.Context, f domain.ClusterFilter) ([]domain.Cluster, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Cluster
	for _, c := range s.clusters {
		if f.ActiveOnly && !c.Active {
			continue
		}
		if f.Region != "" && c.Region != f.Region {
			continue
		}
		if f.CreatedAfter != nil && c.CreatedAt.Before(*f.CreatedAfter) {
			continue
		}
		if f.CreatedBefore != nil && !c.CreatedAt.Before(*f.CreatedBefore) {
			continue
		}
		if f.MinMembers > 0 && c.Size() < f.MinMembers {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *memStore) SaveAlerts(_ context.Context, alerts []domain.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, alerts...)
	return nil
}

func (s *memStore) ListAlerts(_ context.Context, _ domain.AlertFilter) ([]domain.Alert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Alert(nil), s.alerts...), nil
}

func (s *memStore) put(entries ...domain.Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.ID] = e
	}
}

func (s *memStore) entry(id string) domain.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.entries[id]
}

var errStoreDown = errors.New("store down")

// recordingQueue captures enqueued entry IDs.
type recordingQueue struct {
	mu  sync.Mutex
	ids []string
}

func (q *recordingQueue) Enqueue(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ids = append(q.ids, id)
}

func (q *recordingQueue) enqueued() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.ids...)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func ptr[T any](v T) *T { return &v }
