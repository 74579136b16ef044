package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"JournalSync/internal/domain"
	"JournalSync/internal/ports"
)

const (
	defaultAnalysisWorkers  = 4
	defaultAnalysisQueue    = 256
	defaultProviderTimeout  = 10 * time.Second
	defaultSweepBatch       = 50
	sentimentDivergenceWarn = 0.75
)

// AnalysisDeps wires the analysis worker pool.
type AnalysisDeps struct {
	Store    ports.EntryStore
	Provider ports.AnalysisProvider
	// Fallback is the deterministic provider used when Provider fails or times out.
	Fallback  ports.AnalysisProvider
	Embedder  ports.Embedder
	Logger    *slog.Logger
	Clock     func() time.Time
	Workers   int
	QueueSize int
	Timeout   time.Duration
	SweepSize int
}

// AnalysisScheduler runs per-entry analysis off the request path.
//
// Tasks are best effort: a task that cannot persist its result leaves the
// entry at submitted for a later sweep. Task bodies are idempotent, so
// redelivery of an entry that already advanced is a no-op.
type AnalysisScheduler struct {
	store     ports.EntryStore
	provider  ports.AnalysisProvider
	fallback  ports.AnalysisProvider
	embedder  ports.Embedder
	logger    *slog.Logger
	now       func() time.Time
	workers   int
	timeout   time.Duration
	sweepSize int

	mu      sync.RWMutex
	tasks   chan string
	closed  bool
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

var _ ports.TaskQueue = (*AnalysisScheduler)(nil)

// NewAnalysisScheduler constructs the pool; Start must be called before tasks run.
func NewAnalysisScheduler(deps AnalysisDeps) *AnalysisScheduler {
	s := &AnalysisScheduler{
		store:     deps.Store,
		provider:  deps.Provider,
		fallback:  deps.Fallback,
		embedder:  deps.Embedder,
		logger:    deps.Logger,
		now:       deps.Clock,
		workers:   deps.Workers,
		timeout:   deps.Timeout,
		sweepSize: deps.SweepSize,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.workers <= 0 {
		s.workers = defaultAnalysisWorkers
	}
	if s.timeout <= 0 {
		s.timeout = defaultProviderTimeout
	}
	if s.sweepSize <= 0 {
		s.sweepSize = defaultSweepBatch
	}
	if s.provider == nil {
		s.provider = s.fallback
	}
	if s.fallback == nil {
		s.fallback = s.provider
	}
	queueSize := deps.QueueSize
	if queueSize <= 0 {
		queueSize = defaultAnalysisQueue
	}
	s.tasks = make(chan string, queueSize)
	return s
}

// Provider reports the live provider; it is the fallback when none was configured.
func (s *AnalysisScheduler) Provider() ports.AnalysisProvider {
	return s.provider
}

// Start launches the workers. They stop when ctx is cancelled or Stop is called.
func (s *AnalysisScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || s.closed {
		return
	}
	s.started = true

	workerCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.work(workerCtx, i)
	}
	s.logger.Info("analysis workers started", "workers", s.workers, "queue", cap(s.tasks))
}

// Enqueue schedules analysis of an entry without blocking. When the queue is
// full or closed the entry stays submitted until the next sweep.
func (s *AnalysisScheduler) Enqueue(entryID string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.logger.Warn("analysis queue closed, task dropped", "entry", entryID)
		return
	}
	select {
	case s.tasks <- entryID:
	default:
		s.logger.Warn("analysis queue full, task deferred to sweep", "entry", entryID)
	}
}

// Stop cancels in-flight tasks, drops queued ones and waits for workers to exit.
func (s *AnalysisScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.tasks)
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("analysis workers stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("stop analysis workers: %w", ctx.Err())
	}
}

func (s *AnalysisScheduler) work(ctx context.Context, id int) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case entryID, ok := <-s.tasks:
			if !ok {
				return
			}
			if err := s.Process(ctx, entryID); err != nil {
				s.logger.Error("analysis task failed", "worker", id, "entry", entryID, "error", err)
			}
		}
	}
}

// Process analyzes one entry and persists the result.
func (s *AnalysisScheduler) Process(ctx context.Context, entryID string) error {
	entry, err := s.store.GetEntry(ctx, entryID)
	if err != nil {
		return fmt.Errorf("load entry %s: %w", entryID, err)
	}
	if entry.Status != domain.StatusSubmitted {
		s.logger.Debug("entry already analyzed", "entry", entryID, "status", entry.Status)
		return nil
	}

	analysis, err := s.analyze(ctx, entry)
	if err != nil {
		return err
	}
	return s.persist(ctx, entry, analysis)
}

// Sweep re-analyzes entries left at submitted for longer than olderThan using
// batch provider calls. It returns the number of entries analyzed.
func (s *AnalysisScheduler) Sweep(ctx context.Context, olderThan time.Duration) (int, error) {
	cutoff := s.now().Add(-olderThan)
	pending, err := s.store.ListEntries(ctx, domain.EntryFilter{
		Statuses:      []domain.EntryStatus{domain.StatusSubmitted},
		CreatedBefore: &cutoff,
		Limit:         s.sweepSize,
	})
	if err != nil {
		return 0, fmt.Errorf("list pending entries: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	reqs := make([]domain.AnalysisRequest, len(pending))
	for i, entry := range pending {
		reqs[i] = requestFor(entry)
	}

	results, err := s.callBatch(ctx, reqs)
	if err != nil {
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		s.logger.Warn("batch analysis failed, using fallback", "entries", len(reqs), "error", err)
		results, err = s.fallback.AnalyzeBatch(ctx, reqs)
		if err != nil {
			return 0, fmt.Errorf("fallback batch analysis: %w", err)
		}
	}

	analyzed := 0
	for i, entry := range pending {
		if err := s.persist(ctx, entry, results[i]); err != nil {
			s.logger.Error("persist swept analysis", "entry", entry.ID, "error", err)
			continue
		}
		analyzed++
	}
	s.logger.Info("analysis sweep done", "pending", len(pending), "analyzed", analyzed)
	return analyzed, nil
}

func (s *AnalysisScheduler) analyze(ctx context.Context, entry domain.Entry) (domain.Analysis, error) {
	req := requestFor(entry)

	local, err := s.fallback.Analyze(ctx, req)
	if err != nil {
		return domain.Analysis{}, fmt.Errorf("local analysis: %w", err)
	}
	if s.provider == s.fallback {
		return local, nil
	}

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	result, err := s.provider.Analyze(callCtx, req)
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
	cancel()

	if err != nil {
		if ctx.Err() != nil {
			return domain.Analysis{}, ctx.Err()
		}
		s.logger.Warn("analysis provider failed, using heuristic",
			"entry", entry.ID,
			"error", s.providerError(err, timedOut),
		)
		return local, nil
	}

	result.Sentiment = clampUnit(result.Sentiment)
	if len(result.Keywords) == 0 {
		result.Keywords = local.Keywords
	}
	if math.Abs(result.Sentiment-local.Sentiment) > sentimentDivergenceWarn {
		s.logger.Info("provider and heuristic sentiment diverge",
			"entry", entry.ID,
			"provider", result.Sentiment,
			"heuristic", local.Sentiment,
		)
	}
	return result, nil
}

func (s *AnalysisScheduler) callBatch(ctx context.Context, reqs []domain.AnalysisRequest) ([]domain.Analysis, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	results, err := s.provider.AnalyzeBatch(callCtx, reqs)
	if err != nil {
		return nil, s.providerError(err, errors.Is(callCtx.Err(), context.DeadlineExceeded))
	}
	if len(results) != len(reqs) {
		return nil, &domain.ProviderUnavailableError{
			Provider: s.provider.Name(),
			Err:      fmt.Errorf("returned %d results for %d entries", len(results), len(reqs)),
		}
	}
	return results, nil
}

func (s *AnalysisScheduler) providerError(err error, timedOut bool) error {
	if timedOut {
		return &domain.ProviderTimeoutError{Provider: s.provider.Name(), Timeout: s.timeout}
	}
	return &domain.ProviderUnavailableError{Provider: s.provider.Name(), Err: err}
}

func (s *AnalysisScheduler) persist(ctx context.Context, entry domain.Entry, analysis domain.Analysis) error {
	analysis.Sentiment = clampUnit(analysis.Sentiment)
	analysis.Keywords = normalizeKeywords(analysis.Keywords)

	var embedding []float32
	if s.embedder != nil {
		embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
		vec, err := s.embedder.Embed(embedCtx, entry.Content)
		cancel()
		if err != nil {
			s.logger.Warn("embedding failed", "entry", entry.ID, "error", err)
		} else {
			embedding = vec
		}
	}

	if err := s.store.UpdateAnalysis(ctx, entry.ID, analysis, embedding, s.now().UTC()); err != nil {
		return &domain.StoreWriteError{Op: "update analysis", Err: err}
	}
	s.logger.Debug("entry analyzed", "entry", entry.ID, "sentiment", analysis.Sentiment, "source", analysis.Source)
	return nil
}

func requestFor(entry domain.Entry) domain.AnalysisRequest {
	return domain.AnalysisRequest{
		EntryID: entry.ID,
		Text:    entry.Content,
		Context: domain.NewAnalysisContext(entry),
	}
}

func normalizeKeywords(keywords []string) []string {
	seen := make(map[string]struct{}, len(keywords))
	out := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if _, dup := seen[kw]; dup {
			continue
		}
		seen[kw] = struct{}{}
		out = append(out, kw)
	}
	return out
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(-1, math.Min(1, v))
}
