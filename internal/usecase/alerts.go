package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"JournalSync/internal/domain"
	"JournalSync/internal/ports"
)

// DefaultBurnoutLexicon lists the negative-affect phrases that flag burnout risk.
var DefaultBurnoutLexicon = []string{
	"exhausted",
	"overwhelmed",
	"burned out",
	"burnt out",
	"burnout",
	"can't cope",
	"cannot cope",
	"drained",
	"hopeless",
	"giving up",
	"no energy",
	"quit teaching",
}

// AlertConfig holds detection thresholds.
type AlertConfig struct {
	Lookback          time.Duration
	BurnoutThreshold  int
	SystemicMembers   int
	CriticalMembers   int
	BurnoutLexicon    []string
	MaxScannedEntries int
}

// DefaultAlertConfig returns the production thresholds.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		Lookback:          7 * 24 * time.Hour,
		BurnoutThreshold:  3,
		SystemicMembers:   15,
		CriticalMembers:   30,
		BurnoutLexicon:    DefaultBurnoutLexicon,
		MaxScannedEntries: 5000,
	}
}

// AlertDeps wires the alert detector.
type AlertDeps struct {
	Entries  ports.EntryStore
	Clusters ports.ClusterStore
	Alerts   ports.AlertStore
	Config   AlertConfig
	Logger   *slog.Logger
	Clock    func() time.Time
}

// AlertDetector scans recent entries and clusters for systemic-risk signals.
type AlertDetector struct {
	entries  ports.EntryStore
	clusters ports.ClusterStore
	alerts   ports.AlertStore
	cfg      AlertConfig
	lexicon  []string
	logger   *slog.Logger
	now      func() time.Time
}

// NewAlertDetector constructs the detector, filling zero config fields with defaults.
func NewAlertDetector(deps AlertDeps) *AlertDetector {
	cfg := deps.Config
	def := DefaultAlertConfig()
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.BurnoutThreshold <= 0 {
		cfg.BurnoutThreshold = def.BurnoutThreshold
	}
	if cfg.SystemicMembers <= 0 {
		cfg.SystemicMembers = def.SystemicMembers
	}
	if cfg.CriticalMembers <= 0 {
		cfg.CriticalMembers = def.CriticalMembers
	}
	if len(cfg.BurnoutLexicon) == 0 {
		cfg.BurnoutLexicon = def.BurnoutLexicon
	}
	if cfg.MaxScannedEntries <= 0 {
		cfg.MaxScannedEntries = def.MaxScannedEntries
	}

	lexicon := make([]string, 0, len(cfg.BurnoutLexicon))
	for _, term := range cfg.BurnoutLexicon {
		term = strings.ToLower(strings.TrimSpace(term))
		if term != "" {
			lexicon = append(lexicon, term)
		}
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &AlertDetector{
		entries:  deps.Entries,
		clusters: deps.Clusters,
		alerts:   deps.Alerts,
		cfg:      cfg,
		lexicon:  lexicon,
		logger:   logger,
		now:      clock,
	}
}

// Scan evaluates the burnout and systemic rules over the trailing lookback
// window, persists every alert it produces and returns them. Alerts are not
// deduplicated against earlier scans.
func (d *AlertDetector) Scan(ctx context.Context, window domain.Window) ([]domain.Alert, error) {
	now := d.now().UTC()
	start := now.Add(-d.cfg.Lookback)
	if window.Start != nil && window.Start.After(start) {
		start = *window.Start
	}
	end := now
	if window.End != nil && window.End.Before(end) {
		end = *window.End
	}

	alerts := []domain.Alert{}

	burnout, err := d.burnoutAlert(ctx, window.Region, start, end, now)
	if err != nil {
		return nil, err
	}
	if burnout != nil {
		alerts = append(alerts, *burnout)
	}

	systemic, err := d.systemicAlerts(ctx, window.Region, start, end, now)
	if err != nil {
		return nil, err
	}
	alerts = append(alerts, systemic...)

	if len(alerts) > 0 {
		if err := d.alerts.SaveAlerts(ctx, alerts); err != nil {
			return nil, &domain.StoreWriteError{Op: "save alerts", Err: err}
		}
	}

	d.logger.Info("alert scan done",
		"window_start", start,
		"window_end", end,
		"alerts", len(alerts),
	)
	return alerts, nil
}

func (d *AlertDetector) burnoutAlert(ctx context.Context, region string, start, end, now time.Time) (*domain.Alert, error) {
	entries, err := d.entries.ListEntries(ctx, domain.EntryFilter{
		Region:        region,
		CreatedAfter:  &start,
		CreatedBefore: &end,
		Limit:         d.cfg.MaxScannedEntries,
		Newest:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("load recent entries: %w", err)
	}

	var matched []string
	for _, entry := range entries {
		if d.MatchesBurnout(entry.Content) {
			matched = append(matched, entry.ID)
		}
	}
	if len(matched) < d.cfg.BurnoutThreshold {
		return nil, nil
	}

	return &domain.Alert{
		ID:       uuid.NewString(),
		Category: domain.AlertBurnout,
		Severity: domain.PriorityCritical,
		Message: fmt.Sprintf("%d entries in the last %s mention burnout indicators",
			len(matched), formatLookback(end.Sub(start))),
		EntryIDs:  matched,
		CreatedAt: now,
	}, nil
}

func (d *AlertDetector) systemicAlerts(ctx context.Context, region string, start, end, now time.Time) ([]domain.Alert, error) {
	clusters, err := d.clusters.ListClusters(ctx, domain.ClusterFilter{
		ActiveOnly:    true,
		Region:        region,
		CreatedAfter:  &start,
		CreatedBefore: &end,
		MinMembers:    d.cfg.SystemicMembers,
	})
	if err != nil {
		return nil, fmt.Errorf("load recent clusters: %w", err)
	}

	var alerts []domain.Alert
	for _, cluster := range clusters {
		if cluster.Size() < d.cfg.SystemicMembers {
			continue
		}
		severity := domain.PriorityHigh
		if cluster.Size() >= d.cfg.CriticalMembers {
			severity = domain.PriorityCritical
		}
		alerts = append(alerts, domain.Alert{
			ID:        uuid.NewString(),
			Category:  domain.AlertSystemic,
			Severity:  severity,
			Message:   fmt.Sprintf("cluster %q groups %d entries", cluster.Title, cluster.Size()),
			EntryIDs:  append([]string(nil), cluster.EntryIDs...),
			ClusterID: cluster.ID,
			CreatedAt: now,
		})
	}
	return alerts, nil
}

// MatchesBurnout reports whether text contains any lexicon term, case-insensitively.
func (d *AlertDetector) MatchesBurnout(text string) bool {
	lower := strings.ToLower(text)
	for _, term := range d.lexicon {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}

func formatLookback(d time.Duration) string {
	if d >= 24*time.Hour && d%(24*time.Hour) == 0 {
		days := int(d / (24 * time.Hour))
		if days == 1 {
			return "day"
		}
		return fmt.Sprintf("%d days", days)
	}
	return d.Round(time.Minute).String()
}
