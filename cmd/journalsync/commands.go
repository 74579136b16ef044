package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"JournalSync/internal/app"
	"JournalSync/internal/config"
	"JournalSync/internal/domain"
	"JournalSync/internal/logging"
)

type rootOptions struct {
	configPath string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "journalsync",
		Short:         "Offline journal sync and reflection analytics service",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config (defaults to $JOURNALSYNC_CONFIG)")

	root.AddCommand(
		newServeCommand(opts),
		newClusterCommand(opts),
		newAlertsCommand(opts),
		newSweepCommand(opts),
	)
	return root
}

// withApp loads config, builds the application and releases it after fn returns.
func withApp(ctx context.Context, opts *rootOptions, scheduled bool, fn func(*app.Application, *slog.Logger) error) error {
	var (
		cfg config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}
	if !scheduled {
		cfg.Scheduler.Enabled = false
	}

	logger, closer := logging.NewFromConfig(cfg.Logging)
	defer closer.Close()

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("application close", "error", err)
		}
	}()

	if err := fn(application, logger); err != nil {
		logger.Error("application stopped", "error", err)
		return err
	}
	return nil
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the sync API, analysis workers and periodic jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, true, func(a *app.Application, _ *slog.Logger) error {
				return a.Serve(cmd.Context())
			})
		},
	}
}

type windowFlags struct {
	region     string
	since      string
	until      string
	minEntries int
}

func (f *windowFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.region, "region", "", "only consider entries from this region")
	cmd.Flags().StringVar(&f.since, "since", "", `window start, RFC 3339 or natural language ("last monday", "3 days ago")`)
	cmd.Flags().StringVar(&f.until, "until", "", "window end (exclusive), same formats as --since")
}

func (f *windowFlags) window(now time.Time) (domain.Window, error) {
	w := domain.Window{Region: f.region, MinEntries: f.minEntries}
	var err error
	if w.Start, err = parseMoment(f.since, now); err != nil {
		return domain.Window{}, fmt.Errorf("--since: %w", err)
	}
	if w.End, err = parseMoment(f.until, now); err != nil {
		return domain.Window{}, fmt.Errorf("--until: %w", err)
	}
	if w.Start != nil && w.End != nil && !w.Start.Before(*w.End) {
		return domain.Window{}, fmt.Errorf("--since must be before --until")
	}
	return w, nil
}

func newClusterCommand(opts *rootOptions) *cobra.Command {
	flags := &windowFlags{}
	cmd := &cobra.Command{
		Use:   "cluster",
		Short: "Run one clustering pass and print the clusters it produced",
		RunE: func(cmd *cobra.Command, _ []string) error {
			window, err := flags.window(time.Now())
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, false, func(a *app.Application, _ *slog.Logger) error {
				clusters, err := a.Clustering().Run(cmd.Context(), window)
				fmt.Fprintln(cmd.OutOrStdout(), renderClusters(clusters, time.Now()))
				return err
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVar(&flags.minEntries, "min-entries", 0, "skip clustering when fewer candidate entries exist")
	return cmd
}

func newAlertsCommand(opts *rootOptions) *cobra.Command {
	flags := &windowFlags{}
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Scan recent entries and clusters for systemic-risk alerts",
		RunE: func(cmd *cobra.Command, _ []string) error {
			window, err := flags.window(time.Now())
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, false, func(a *app.Application, _ *slog.Logger) error {
				alerts, err := a.Alerts().Scan(cmd.Context(), window)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderAlerts(alerts, time.Now()))
				return nil
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newSweepCommand(opts *rootOptions) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Re-analyze entries stuck at submitted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, false, func(a *app.Application, _ *slog.Logger) error {
				n, err := a.Analysis().Sweep(cmd.Context(), olderThan)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderSweep(n, olderThan))
				return nil
			})
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 10*time.Minute, "only sweep entries submitted at least this long ago")
	return cmd
}
