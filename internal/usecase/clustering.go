package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"JournalSync/internal/domain"
	"JournalSync/internal/ports"
)

// clusterNamespace seeds name-based cluster IDs so identical memberships map to one cluster row.
var clusterNamespace = uuid.MustParse("6f1c8a52-3d0e-4c7a-9b8e-2a5f0d7e4c11")

// ClusteringConfig tunes the grouping pass.
type ClusteringConfig struct {
	Threshold      float64
	MinClusterSize int
	MaxEntries     int
	UseEmbeddings  bool
}

// DefaultClusteringConfig returns the production thresholds.
func DefaultClusteringConfig() ClusteringConfig {
	return ClusteringConfig{
		Threshold:      0.7,
		MinClusterSize: 3,
		MaxEntries:     500,
	}
}

// ClusteringDeps wires the clustering engine.
type ClusteringDeps struct {
	Entries  ports.EntryStore
	Clusters ports.ClusterStore
	Config   ClusteringConfig
	Logger   *slog.Logger
	Clock    func() time.Time
}

// ClusteringEngine groups similar entries into priority-ranked clusters.
type ClusteringEngine struct {
	entries  ports.EntryStore
	clusters ports.ClusterStore
	cfg      ClusteringConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewClusteringEngine constructs the engine, filling zero config fields with defaults.
func NewClusteringEngine(deps ClusteringDeps) *ClusteringEngine {
	cfg := deps.Config
	def := DefaultClusteringConfig()
	if cfg.Threshold <= 0 {
		cfg.Threshold = def.Threshold
	}
	if cfg.MinClusterSize <= 0 {
		cfg.MinClusterSize = def.MinClusterSize
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &ClusteringEngine{
		entries:  deps.Entries,
		clusters: deps.Clusters,
		cfg:      cfg,
		logger:   logger,
		now:      clock,
	}
}

// Run clusters the most recent submitted and analyzed entries selected by the
// window, persists the clusters with their memberships and advances members to
// clustered. Entries that do not reach the minimum cluster size stay
// unclustered for a later run.
func (e *ClusteringEngine) Run(ctx context.Context, window domain.Window) ([]domain.Cluster, error) {
	candidates, err := e.entries.ListEntries(ctx, domain.EntryFilter{
		Statuses:      []domain.EntryStatus{domain.StatusSubmitted, domain.StatusAnalyzed},
		Region:        window.Region,
		CreatedAfter:  window.Start,
		CreatedBefore: window.End,
		Limit:         e.cfg.MaxEntries,
		Newest:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("load candidate entries: %w", err)
	}

	if window.MinEntries > 0 && len(candidates) < window.MinEntries {
		e.logger.Info("clustering skipped", "candidates", len(candidates), "min_entries", window.MinEntries)
		return []domain.Cluster{}, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.Before(candidates[j].CreatedAt)
	})

	now := e.now().UTC()
	clusters := []domain.Cluster{}
	var errs []error
	for _, members := range e.group(candidates) {
		cluster := e.buildCluster(members, now)

		if err := e.clusters.SaveCluster(ctx, cluster); err != nil {
			errs = append(errs, fmt.Errorf("save cluster %s: %w", cluster.ID, err))
			continue
		}
		if err := e.entries.MarkClustered(ctx, cluster.EntryIDs, now); err != nil {
			errs = append(errs, fmt.Errorf("mark cluster %s members: %w", cluster.ID, err))
		}
		clusters = append(clusters, cluster)
	}

	e.logger.Info("clustering done",
		"candidates", len(candidates),
		"clusters", len(clusters),
		"failures", len(errs),
	)
	return clusters, errors.Join(errs...)
}

// group performs greedy seeded grouping: a candidate joins the seed's group
// when its similarity to every member already in the group exceeds the
// threshold. Each entry joins at most one group per pass.
func (e *ClusteringEngine) group(entries []domain.Entry) [][]domain.Entry {
	assigned := make([]bool, len(entries))
	var groups [][]domain.Entry

	for seed := range entries {
		if assigned[seed] {
			continue
		}

		members := []int{seed}
		for cand := range entries {
			if cand == seed || assigned[cand] {
				continue
			}
			if e.fits(entries, members, cand) {
				members = append(members, cand)
			}
		}

		if len(members) < e.cfg.MinClusterSize {
			continue
		}

		sort.Ints(members)
		group := make([]domain.Entry, len(members))
		for i, idx := range members {
			assigned[idx] = true
			group[i] = entries[idx]
		}
		groups = append(groups, group)
	}

	return groups
}

func (e *ClusteringEngine) fits(entries []domain.Entry, members []int, cand int) bool {
	for _, m := range members {
		if Similarity(entries[m], entries[cand], e.cfg.UseEmbeddings) <= e.cfg.Threshold {
			return false
		}
	}
	return true
}

func (e *ClusteringEngine) buildCluster(members []domain.Entry, now time.Time) domain.Cluster {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}

	keywords := sharedKeywords(members)
	topKeyword := "General"
	if len(keywords) > 0 {
		topKeyword = keywords[0]
	}

	mean, hasSentiment := meanSentiment(members)
	var sentiment *float64
	if hasSentiment {
		sentiment = &mean
	}

	return domain.Cluster{
		ID:         clusterID(ids),
		Title:      subjectPrefix(members) + topKeyword + " Issues",
		Keywords:   keywords,
		Priority:   ClusterPriority(len(members), mean),
		EntryIDs:   ids,
		Sentiment:  sentiment,
		Confidence: e.cohesion(members),
		Active:     true,
		Region:     commonRegion(members),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// cohesion is the mean pairwise similarity inside the cluster.
func (e *ClusteringEngine) cohesion(members []domain.Entry) float64 {
	var sum float64
	pairs := 0
	for i := range members {
		for j := i + 1; j < len(members); j++ {
			sum += Similarity(members[i], members[j], e.cfg.UseEmbeddings)
			pairs++
		}
	}
	if pairs == 0 {
		return 0
	}
	return sum / float64(pairs)
}

// ClusterPriority ranks a cluster by size and mean sentiment. For a fixed
// mean sentiment the result never decreases as size grows.
func ClusterPriority(size int, meanSentiment float64) domain.Priority {
	switch {
	case size >= 20 || meanSentiment < -0.5:
		return domain.PriorityCritical
	case size >= 10 || meanSentiment < -0.2:
		return domain.PriorityHigh
	case size >= 5:
		return domain.PriorityMedium
	default:
		return domain.PriorityLow
	}
}

// sharedKeywords returns keywords carried by at least half of the members,
// most frequent first, ties in first-seen order.
func sharedKeywords(members []domain.Entry) []string {
	counts := map[string]int{}
	var order []string
	for _, m := range members {
		seen := map[string]struct{}{}
		for _, kw := range m.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			if _, dup := seen[kw]; dup {
				continue
			}
			seen[kw] = struct{}{}
			if counts[kw] == 0 {
				order = append(order, kw)
			}
			counts[kw]++
		}
	}

	shared := make([]string, 0, len(order))
	for _, kw := range order {
		if counts[kw]*2 >= len(members) {
			shared = append(shared, kw)
		}
	}
	sort.SliceStable(shared, func(i, j int) bool {
		return counts[shared[i]] > counts[shared[j]]
	})
	return shared
}

func subjectPrefix(members []domain.Entry) string {
	counts := map[string]int{}
	display := map[string]string{}
	var order []string
	for _, m := range members {
		subject := strings.TrimSpace(m.Context.Subject)
		if subject == "" {
			continue
		}
		key := strings.ToLower(subject)
		if counts[key] == 0 {
			order = append(order, key)
			display[key] = subject
		}
		counts[key]++
	}

	best := ""
	for _, key := range order {
		if best == "" || counts[key] > counts[best] {
			best = key
		}
	}
	if best == "" || counts[best]*2 < len(members) {
		return ""
	}
	return display[best] + ": "
}

func meanSentiment(members []domain.Entry) (float64, bool) {
	var sum float64
	n := 0
	for _, m := range members {
		if m.Sentiment != nil {
			sum += *m.Sentiment
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

func commonRegion(members []domain.Entry) string {
	region := members[0].Region
	for _, m := range members[1:] {
		if m.Region != region {
			return ""
		}
	}
	return region
}

func clusterID(entryIDs []string) string {
	sorted := append([]string(nil), entryIDs...)
	sort.Strings(sorted)
	return uuid.NewSHA1(clusterNamespace, []byte(strings.Join(sorted, ","))).String()
}
