package main

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JournalSync/internal/domain"
)

var refNow = time.Date(2026, time.March, 12, 15, 0, 0, 0, time.UTC)

func TestParseMoment(t *testing.T) {
	t.Parallel()

	got, err := parseMoment("", refNow)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseMoment("2026-03-01T08:30:00+02:00", refNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 1, 6, 30, 0, 0, time.UTC), *got)

	got, err = parseMoment("2026-03-01", refNow)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), *got)

	got, err = parseMoment("3 days ago", refNow)
	require.NoError(t, err)
	assert.Equal(t, refNow.Add(-72*time.Hour), *got)

	_, err = parseMoment("whenever", refNow)
	assert.Error(t, err)
}

func TestWindowFlags(t *testing.T) {
	t.Parallel()

	f := windowFlags{region: "north", since: "2026-03-01", until: "2026-03-08", minEntries: 5}
	w, err := f.window(refNow)
	require.NoError(t, err)
	assert.Equal(t, "north", w.Region)
	assert.Equal(t, 5, w.MinEntries)
	require.NotNil(t, w.Start)
	require.NotNil(t, w.End)

	f = windowFlags{since: "2026-03-08", until: "2026-03-01"}
	_, err = f.window(refNow)
	assert.ErrorContains(t, err, "--since must be before --until")
}

func TestRootCommandRegistersSubcommands(t *testing.T) {
	t.Parallel()

	root := newRootCommand()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"serve", "cluster", "alerts", "sweep"} {
		assert.Contains(t, names, want)
	}
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestRenderClusters(t *testing.T) {
	t.Parallel()

	sentiment := -0.35
	out := renderClusters([]domain.Cluster{{
		ID:         "k1",
		Title:      "Math: fractions Issues",
		Keywords:   []string{"fractions", "denominators"},
		Priority:   domain.PriorityHigh,
		EntryIDs:   []string{"a", "b", "c"},
		Sentiment:  &sentiment,
		Confidence: 0.82,
		CreatedAt:  refNow.Add(-2 * time.Hour),
	}}, refNow)

	for _, want := range []string{"1 clusters", "HIGH", "Math: fractions Issues", "members 3", "-0.35", "fractions, denominators", "2 hours ago"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, renderClusters(nil, refNow), "no clusters formed")
}

func TestRenderAlertsAndSweep(t *testing.T) {
	t.Parallel()

	out := renderAlerts([]domain.Alert{{
		Category:  domain.AlertBurnout,
		Severity:  domain.PriorityCritical,
		Message:   "3 entries in the last 7 days mention burnout indicators",
		EntryIDs:  []string{"a", "b", "c"},
		CreatedAt: refNow,
	}}, refNow)
	assert.Contains(t, out, "CRITICAL")
	assert.Contains(t, out, "burnout")
	assert.Contains(t, out, "3 entries")

	assert.Contains(t, renderAlerts(nil, refNow), "no alerts raised")
	assert.True(t, strings.Contains(renderSweep(1, time.Minute), "re-analyzed 1 entry"))
	assert.Contains(t, renderSweep(0, 10*time.Minute), "10m0s")
}
