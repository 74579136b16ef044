package usecase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JournalSync/internal/domain"
	"JournalSync/internal/usecase"
)

var clusterNow = time.Date(2026, time.March, 4, 18, 0, 0, 0, time.UTC)

func keywordEntry(id, subject string, created time.Time, keywords ...string) domain.Entry {
	return domain.Entry{
		ID:        id,
		AuthorID:  "teacher-" + id,
		Content:   "entry " + id,
		Status:    domain.StatusAnalyzed,
		Keywords:  keywords,
		Context:   domain.EntryContext{Subject: subject},
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func fractionsEntries(n int) []domain.Entry {
	entries := make([]domain.Entry, n)
	for i := range entries {
		entries[i] = keywordEntry(fmt.Sprintf("f%02d", i), "Math", clusterNow.Add(time.Duration(i-n)*time.Hour),
			"fractions", "denominators", "numerators", "equivalence", fmt.Sprintf("extra%d", i))
	}
	return entries
}

func newEngine(store *memStore) *usecase.ClusteringEngine {
	return usecase.NewClusteringEngine(usecase.ClusteringDeps{
		Entries:  store,
		Clusters: store,
		Clock:    fixedClock(clusterNow),
	})
}

func TestRunGroupsSimilarEntries(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.put(fractionsEntries(5)...)
	store.put(
		keywordEntry("x1", "History", clusterNow.Add(-time.Hour), "treaty", "empire"),
		keywordEntry("x2", "Art", clusterNow.Add(-time.Hour), "pastels"),
	)

	clusters, err := newEngine(store).Run(context.Background(), domain.Window{})
	require.NoError(t, err)
	require.Len(t, clusters, 1)

	c := clusters[0]
	assert.Equal(t, 5, c.Size())
	assert.Contains(t, c.Title, "fractions")
	assert.Equal(t, "Math: fractions Issues", c.Title)
	assert.GreaterOrEqual(t, c.Priority.Rank(), domain.PriorityMedium.Rank())
	assert.True(t, c.Active)
	assert.Nil(t, c.Sentiment, "no member carries a sentiment score")
	assert.Greater(t, c.Confidence, 0.7)
	assert.Equal(t, []string{"fractions", "denominators", "numerators", "equivalence"}, c.Keywords)

	for _, id := range c.EntryIDs {
		assert.Equal(t, domain.StatusClustered, store.entry(id).Status)
	}
	assert.Equal(t, domain.StatusAnalyzed, store.entry("x1").Status)
}

func TestRunRequiresMinimumClusterSize(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.put(fractionsEntries(2)...)

	clusters, err := newEngine(store).Run(context.Background(), domain.Window{})
	require.NoError(t, err)
	assert.Empty(t, clusters)
	assert.Equal(t, domain.StatusAnalyzed, store.entry("f00").Status)
}

func TestRunAssignsEachEntryOnce(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.put(fractionsEntries(4)...)
	for i := 0; i < 4; i++ {
		store.put(keywordEntry(fmt.Sprintf("r%02d", i), "Reading", clusterNow.Add(-time.Duration(i)*time.Minute),
			"phonics", "fluency", "vocabulary"))
	}

	clusters, err := newEngine(store).Run(context.Background(), domain.Window{})
	require.NoError(t, err)
	require.Len(t, clusters, 2)

	seen := map[string]int{}
	for _, c := range clusters {
		for _, id := range c.EntryIDs {
			seen[id]++
		}
	}
	assert.Len(t, seen, 8)
	for id, n := range seen {
		assert.Equal(t, 1, n, id)
	}

	again, err := newEngine(store).Run(context.Background(), domain.Window{})
	require.NoError(t, err)
	assert.Empty(t, again, "clustered entries are not candidates")
}

func TestRunRequiresSimilarityToEveryMember(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	// b is close to both a and c, but a and c fall below the threshold.
	store.put(
		keywordEntry("a", "", clusterNow.Add(-3*time.Hour), "k1", "k2", "k3", "k4", "k5"),
		keywordEntry("b", "", clusterNow.Add(-2*time.Hour), "k1", "k2", "k3", "k4", "k5", "k6"),
		keywordEntry("c", "", clusterNow.Add(-time.Hour), "k2", "k3", "k4", "k5", "k6"),
	)

	clusters, err := newEngine(store).Run(context.Background(), domain.Window{})
	require.NoError(t, err)
	assert.Empty(t, clusters)
}

func TestRunHonoursWindow(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.put(fractionsEntries(5)...)

	start := clusterNow.Add(-3 * time.Hour)
	clusters, err := newEngine(store).Run(context.Background(), domain.Window{Start: &start})
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].Size())

	skipped, err := newEngine(store).Run(context.Background(), domain.Window{MinEntries: 10})
	require.NoError(t, err)
	assert.Empty(t, skipped)
	assert.NotNil(t, skipped)
}

func TestRunSeesNewEntriesPastTheCandidateCap(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	for i := 0; i < 20; i++ {
		store.put(keywordEntry(fmt.Sprintf("old%02d", i), "", clusterNow.Add(-time.Duration(100+i)*time.Hour), fmt.Sprintf("solo%d", i)))
	}
	store.put(fractionsEntries(5)...)

	engine := usecase.NewClusteringEngine(usecase.ClusteringDeps{
		Entries:  store,
		Clusters: store,
		Config:   usecase.ClusteringConfig{MaxEntries: 20},
		Clock:    fixedClock(clusterNow),
	})

	for run := 0; run < 2; run++ {
		_, err := engine.Run(context.Background(), domain.Window{})
		require.NoError(t, err)
	}

	clusters, err := store.ListClusters(context.Background(), domain.ClusterFilter{})
	require.NoError(t, err)
	require.Len(t, clusters, 1)
	assert.Equal(t, 5, clusters[0].Size())
	assert.Equal(t, domain.StatusAnalyzed, store.entry("old00").Status)
}

func TestRunUsesMeanSentimentForPriority(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	entries := fractionsEntries(3)
	entries[0].Sentiment = ptr(-0.9)
	entries[1].Sentiment = ptr(-0.7)
	store.put(entries...)

	clusters, err := newEngine(store).Run(context.Background(), domain.Window{})
	require.NoError(t, err)
	require.Len(t, clusters, 1)

	require.NotNil(t, clusters[0].Sentiment)
	assert.InDelta(t, -0.8, *clusters[0].Sentiment, 1e-9)
	assert.Equal(t, domain.PriorityCritical, clusters[0].Priority)
}

func TestRunProducesStableClusterIDs(t *testing.T) {
	t.Parallel()

	run := func() domain.Cluster {
		store := newMemStore()
		store.put(fractionsEntries(4)...)
		clusters, err := newEngine(store).Run(context.Background(), domain.Window{})
		require.NoError(t, err)
		require.Len(t, clusters, 1)
		return clusters[0]
	}

	first, second := run(), run()
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("cluster differs between identical runs (-first +second):\n%s", diff)
	}
}

func TestRunReportsSaveFailures(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	store.put(fractionsEntries(3)...)
	store.failSave = errStoreDown

	clusters, err := newEngine(store).Run(context.Background(), domain.Window{})
	require.ErrorIs(t, err, errStoreDown)
	assert.Empty(t, clusters)
	assert.Equal(t, domain.StatusAnalyzed, store.entry("f00").Status)
}

func TestClusterPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		size      int
		sentiment float64
		want      domain.Priority
	}{
		{3, 0, domain.PriorityLow},
		{5, 0.4, domain.PriorityMedium},
		{10, 0.4, domain.PriorityHigh},
		{20, 0.4, domain.PriorityCritical},
		{3, -0.3, domain.PriorityHigh},
		{3, -0.6, domain.PriorityCritical},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, usecase.ClusterPriority(tt.size, tt.sentiment), "size=%d sentiment=%v", tt.size, tt.sentiment)
	}
}

func TestClusterPriorityMonotonicInSize(t *testing.T) {
	t.Parallel()

	for _, sentiment := range []float64{-1, -0.6, -0.3, 0, 0.5, 1} {
		prev := 0
		for size := 1; size <= 40; size++ {
			rank := usecase.ClusterPriority(size, sentiment).Rank()
			require.GreaterOrEqual(t, rank, prev, "size=%d sentiment=%v", size, sentiment)
			prev = rank
		}
	}
}

func TestSimilarity(t *testing.T) {
	t.Parallel()

	a := domain.Entry{Keywords: []string{"fractions", "ratios"}, Context: domain.EntryContext{Subject: "Math", Grade: "5"}}
	b := domain.Entry{Keywords: []string{"Fractions", "decimals"}, Context: domain.EntryContext{Subject: "math", Grade: "5"}}
	empty := domain.Entry{}

	assert.InDelta(t, 1.0/3.0, usecase.Jaccard(a.Keywords, b.Keywords), 1e-9)
	assert.Zero(t, usecase.Jaccard(nil, nil))
	assert.Zero(t, usecase.Similarity(empty, empty, false))
	assert.InDelta(t, 1.0/3.0+0.3, usecase.Similarity(a, b, false), 1e-9)
	assert.Equal(t, 1.0, usecase.Similarity(a, a, false), "capped at 1")

	a.Embedding = []float32{1, 0}
	b.Embedding = []float32{1, 0}
	assert.InDelta(t, 1.0/3.0+0.3, usecase.Similarity(a, b, false), 1e-9)
	assert.Equal(t, 1.0, usecase.Similarity(a, b, true))

	b.Embedding = []float32{0, 1}
	assert.InDelta(t, 0.3, usecase.Similarity(a, b, true), 1e-9)
}
