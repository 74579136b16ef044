package scheduler

import (
	"context"
	"sync"
	"time"

	"JournalSync/internal/ports"
)

// IntervalScheduler runs a job immediately and then on a fixed interval.
// Runs never overlap: a tick that arrives while the job is running is dropped.
type IntervalScheduler struct {
	interval time.Duration
	loc      *time.Location

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

var _ ports.Scheduler = (*IntervalScheduler)(nil)

// NewIntervalScheduler builds a scheduler; triggers are reported in loc (UTC when nil).
func NewIntervalScheduler(interval time.Duration, loc *time.Location) *IntervalScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &IntervalScheduler{interval: interval, loc: loc}
}

// Start begins ticking. Calling Start on a running scheduler is a no-op.
func (s *IntervalScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil || s.interval <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop != nil {
		return nil
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stop, s.done = stop, done

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		job(time.Now().In(s.loc))
		for {
			select {
			case t := <-ticker.C:
				job(t.In(s.loc))
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()

	return nil
}

// Stop halts the ticker goroutine and waits for an in-flight job, bounded by ctx.
func (s *IntervalScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	stop, done := s.stop, s.done
	s.stop, s.done = nil, nil
	s.mu.Unlock()

	if stop == nil {
		return nil
	}
	close(stop)

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
