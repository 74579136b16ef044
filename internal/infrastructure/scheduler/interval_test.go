package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestIntervalRunsImmediatelyAndRepeats(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*60*60)
	s := NewIntervalScheduler(10*time.Millisecond, loc)

	var runs atomic.Int32
	var zone atomic.Value
	err := s.Start(context.Background(), func(trigger time.Time) {
		name, _ := trigger.Zone()
		zone.Store(name)
		runs.Add(1)
	})
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if runs.Load() < 3 {
		t.Fatalf("expected at least 3 runs, got %d", runs.Load())
	}
	if zone.Load() != "UTC+3" {
		t.Fatalf("trigger not reported in scheduler location: %v", zone.Load())
	}

	after := runs.Load()
	time.Sleep(30 * time.Millisecond)
	if runs.Load() != after {
		t.Fatalf("job ran after stop")
	}
}

func TestStartTwiceIsNoop(t *testing.T) {
	s := NewIntervalScheduler(time.Hour, nil)

	var runs atomic.Int32
	job := func(time.Time) { runs.Add(1) }
	if err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Start(context.Background(), job); err != nil {
		t.Fatalf("second start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if runs.Load() != 1 {
		t.Fatalf("expected one immediate run, got %d", runs.Load())
	}
}

func TestStopBoundedByContext(t *testing.T) {
	s := NewIntervalScheduler(time.Hour, nil)

	release := make(chan struct{})
	started := make(chan struct{})
	if err := s.Start(context.Background(), func(time.Time) {
		close(started)
		<-release
	}); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := s.Stop(ctx); err != context.DeadlineExceeded {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	close(release)
}

func TestDisabledInterval(t *testing.T) {
	s := NewIntervalScheduler(0, nil)
	if err := s.Start(context.Background(), func(time.Time) { t.Fatalf("job must not run") }); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
