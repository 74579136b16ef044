package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"JournalSync/internal/analyzer"
	"JournalSync/internal/config"
	"JournalSync/internal/httpapi"
	"JournalSync/internal/infrastructure/cache"
	"JournalSync/internal/infrastructure/embedding"
	"JournalSync/internal/infrastructure/heuristic"
	"JournalSync/internal/infrastructure/llm"
	"JournalSync/internal/infrastructure/ml"
	"JournalSync/internal/infrastructure/scheduler"
	"JournalSync/internal/infrastructure/storage"
	"JournalSync/internal/logging"
	"JournalSync/internal/ports"
	"JournalSync/internal/usecase"
)

const cacheGCInterval = 10 * time.Minute

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg    config.Config
	logger *slog.Logger

	store *storage.SQLStore
	cache ports.AnalysisCache

	analysis   *usecase.AnalysisScheduler
	sync       *usecase.SyncCoordinator
	clustering *usecase.ClusteringEngine
	alerts     *usecase.AlertDetector
	scheduler  *usecase.Scheduler
}

// New opens the store and cache and builds every use case.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	dialect, err := storage.ParseDialect(cfg.Database.Driver)
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(ctx, dialect, cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	analysisCache := openCache(cfg.Cache, baseLogger)

	fallback := heuristic.NewProvider(cfg.Analysis.KeywordCount)
	provider := selectProvider(cfg, fallback, baseLogger)
	if provider.Name() != heuristic.Name {
		provider = analyzer.NewCachedProvider(provider, analysisCache, cfg.Cache.TTL,
			baseLogger.With("component", "analysis.cache"))
	}

	var embedder ports.Embedder
	if cfg.Embedding.Enabled {
		e, err := embedding.NewGenAIEmbedder(ctx, cfg.Embedding)
		if err != nil {
			baseLogger.Warn("embeddings disabled", "error", err)
		} else {
			embedder = e
		}
	}

	clock := func() time.Time { return time.Now().UTC() }

	analysis := usecase.NewAnalysisScheduler(usecase.AnalysisDeps{
		Store:     store,
		Provider:  provider,
		Fallback:  fallback,
		Embedder:  embedder,
		Logger:    baseLogger.With("component", "analysis"),
		Clock:     clock,
		Workers:   cfg.Analysis.Workers,
		QueueSize: cfg.Analysis.QueueSize,
		Timeout:   cfg.Analysis.Timeout,
		SweepSize: cfg.Analysis.SweepBatch,
	})

	syncCoordinator := usecase.NewSyncCoordinator(usecase.SyncDeps{
		Store:  store,
		Queue:  analysis,
		Logger: baseLogger.With("component", "sync"),
		Clock:  clock,
	})

	clustering := usecase.NewClusteringEngine(usecase.ClusteringDeps{
		Entries:  store,
		Clusters: store,
		Config: usecase.ClusteringConfig{
			Threshold:      cfg.Clustering.Threshold,
			MinClusterSize: cfg.Clustering.MinClusterSize,
			MaxEntries:     cfg.Clustering.MaxEntries,
			UseEmbeddings:  cfg.Clustering.UseEmbeddings,
		},
		Logger: baseLogger.With("component", "clustering"),
		Clock:  clock,
	})

	alerts := usecase.NewAlertDetector(usecase.AlertDeps{
		Entries:  store,
		Clusters: store,
		Alerts:   store,
		Config: usecase.AlertConfig{
			Lookback:         cfg.Alerts.Lookback,
			BurnoutThreshold: cfg.Alerts.BurnoutThreshold,
			SystemicMembers:  cfg.Alerts.SystemicMembers,
			CriticalMembers:  cfg.Alerts.CriticalMembers,
			BurnoutLexicon:   cfg.Alerts.BurnoutLexicon,
		},
		Logger: baseLogger.With("component", "alerts"),
		Clock:  clock,
	})

	maintenance := usecase.NewMaintenance(analysis, clustering, alerts, cfg.Scheduler.SweepAge,
		baseLogger.With("component", "maintenance"))

	var sched *usecase.Scheduler
	if cfg.Scheduler.Enabled {
		driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval, cfg.Scheduler.Location())
		sched = usecase.NewScheduler(driver, maintenance)
	}

	return &Application{
		cfg:        cfg,
		logger:     baseLogger,
		store:      store,
		cache:      analysisCache,
		analysis:   analysis,
		sync:       syncCoordinator,
		clustering: clustering,
		alerts:     alerts,
		scheduler:  sched,
	}, nil
}

// openCache falls back to the no-op cache when badger cannot be opened;
// analysis then runs uncached instead of blocking startup.
func openCache(cfg config.CacheConfig, logger *slog.Logger) ports.AnalysisCache {
	if !cfg.Enabled {
		return cache.Noop{}
	}
	c, err := cache.OpenBadger(cfg.Dir, logger)
	if err != nil {
		logger.Warn("analysis cache unavailable, running without cache", "dir", cfg.Dir, "error", err)
		return cache.Noop{}
	}
	return c
}

// selectProvider registers every configured provider and resolves the one
// named in config; unknown or unconfigured names fall back to the heuristic.
func selectProvider(cfg config.Config, fallback ports.AnalysisProvider, logger *slog.Logger) ports.AnalysisProvider {
	registry := analyzer.NewRegistry()
	registry.Register(fallback)

	if cfg.OpenAI.APIKey != "" {
		registry.Register(llm.NewOpenAIProvider(cfg.OpenAI))
	}
	if cfg.Anthropic.APIKey != "" {
		p, err := llm.NewAnthropicProvider(cfg.Anthropic)
		if err != nil {
			logger.Warn("anthropic provider disabled", "error", err)
		} else {
			registry.Register(p)
		}
	}
	if cfg.ML.InferenceURL != "" {
		registry.Register(ml.NewClient(cfg.ML))
	}

	provider, err := registry.Resolve(cfg.Analysis.Provider)
	if err != nil {
		logger.Warn("falling back to heuristic analysis",
			"error", err,
			"available", registry.Names(),
		)
		return fallback
	}
	logger.Info("analysis provider selected", "provider", provider.Name())
	return provider
}

// Handler builds the HTTP API over the application's use cases.
func (a *Application) Handler() http.Handler {
	return httpapi.New(httpapi.Deps{
		Sync:         a.sync,
		Clustering:   a.clustering,
		Alerts:       a.alerts,
		Reader:       a.store,
		Logger:       a.logger.With("component", "http"),
		MaxBodyBytes: a.cfg.HTTP.MaxBodyBytes,
		Timeout:      a.cfg.HTTP.WriteTimeout,
	})
}

// Serve runs the API, analysis workers and periodic jobs until ctx is done.
func (a *Application) Serve(ctx context.Context) error {
	a.analysis.Start(ctx)
	if a.scheduler != nil {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	}

	srv := &http.Server{
		Addr:         a.cfg.HTTP.Addr,
		Handler:      a.Handler(),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	if b, ok := a.cache.(*cache.Badger); ok {
		g.Go(func() error {
			a.collectCacheGarbage(gctx, b)
			return nil
		})
	}
	g.Go(func() error {
		a.logger.Info("http listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if a.scheduler != nil {
			if err := a.scheduler.Stop(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("stop scheduler: %w", err))
			}
		}
		if err := a.analysis.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	return g.Wait()
}

func (a *Application) collectCacheGarbage(ctx context.Context, b *cache.Badger) {
	ticker := time.NewTicker(cacheGCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := b.RunGC(); err != nil {
				a.logger.Warn("cache gc", "error", err)
			}
		}
	}
}

// Clustering exposes the engine for one-shot CLI runs.
func (a *Application) Clustering() *usecase.ClusteringEngine { return a.clustering }

// Alerts exposes the detector for one-shot CLI runs.
func (a *Application) Alerts() *usecase.AlertDetector { return a.alerts }

// Analysis exposes the analysis scheduler for one-shot sweeps.
func (a *Application) Analysis() *usecase.AnalysisScheduler { return a.analysis }

// Close releases the cache and the store.
func (a *Application) Close() error {
	var errs []error
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close cache: %w", err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
