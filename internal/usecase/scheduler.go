package usecase

import (
	"context"
	"log/slog"
	"time"

	"JournalSync/internal/domain"
	"JournalSync/internal/ports"
)

// Maintenance runs the periodic sweep, clustering and alert jobs in order.
type Maintenance struct {
	analysis   *AnalysisScheduler
	clustering *ClusteringEngine
	alerts     *AlertDetector
	sweepAge   time.Duration
	logger     *slog.Logger
}

// NewMaintenance bundles the periodic jobs. Any of them may be nil.
func NewMaintenance(analysis *AnalysisScheduler, clustering *ClusteringEngine, alerts *AlertDetector, sweepAge time.Duration, logger *slog.Logger) *Maintenance {
	if logger == nil {
		logger = slog.Default()
	}
	return &Maintenance{
		analysis:   analysis,
		clustering: clustering,
		alerts:     alerts,
		sweepAge:   sweepAge,
		logger:     logger,
	}
}

// RunOnce executes one maintenance round. A failing step is logged and does
// not prevent the following steps.
func (m *Maintenance) RunOnce(ctx context.Context, trigger time.Time) {
	logger := m.logger.With("trigger", trigger.UTC())

	if m.analysis != nil {
		n, err := m.analysis.Sweep(ctx, m.sweepAge)
		if err != nil {
			logger.Error("sweep failed", "error", err)
		} else if n > 0 {
			logger.Info("sweep reanalyzed entries", "count", n)
		}
	}

	if m.clustering != nil {
		if _, err := m.clustering.Run(ctx, domain.Window{}); err != nil {
			logger.Error("clustering failed", "error", err)
		}
	}

	if m.alerts != nil {
		if _, err := m.alerts.Scan(ctx, domain.Window{}); err != nil {
			logger.Error("alert scan failed", "error", err)
		}
	}
}

// Scheduler wires the interval driver with the maintenance jobs.
type Scheduler struct {
	driver ports.Scheduler
	jobs   *Maintenance
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, jobs *Maintenance) *Scheduler {
	return &Scheduler{driver: driver, jobs: jobs}
}

// Start registers the maintenance round with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.jobs == nil {
		return nil
	}

	job := func(trigger time.Time) {
		s.jobs.RunOnce(ctx, trigger)
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
