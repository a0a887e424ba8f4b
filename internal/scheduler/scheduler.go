// Package scheduler runs the daily auto-stop job that force-closes sessions
// left open past expectation.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// timeNow is a variable for testing purposes.
var timeNow = time.Now

// Reconciler is the job dependency: one call closes every stale open log.
type Reconciler interface {
	ReconcileStale(ctx context.Context) (int, error)
}

// AutoStop fires the reconciliation job once a day at a fixed wall-clock
// time. There is exactly one named job; an invocation must finish before the
// next fire time is assessed, so runs never overlap. Job failures are logged
// at the job boundary and never propagate.
type AutoStop struct {
	reconciler Reconciler
	hour       int
	minute     int
	logger     *slog.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// NewAutoStop creates the scheduler. hour and minute are the local
// wall-clock fire time.
func NewAutoStop(reconciler Reconciler, hour, minute int, logger *slog.Logger) *AutoStop {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoStop{
		reconciler: reconciler,
		hour:       hour,
		minute:     minute,
		logger:     logger,
	}
}

// Start launches the timer loop. Calling Start twice is a no-op.
func (s *AutoStop) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(ctx)
	s.logger.Info("auto-stop scheduler started", "hour", s.hour, "minute", s.minute)
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *AutoStop) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	cancel, done := s.cancel, s.done
	s.started = false
	s.mu.Unlock()

	cancel()
	<-done
	s.logger.Info("auto-stop scheduler stopped")
}

func (s *AutoStop) loop(ctx context.Context) {
	defer close(s.done)

	for {
		now := timeNow()
		wait := s.nextFire(now).Sub(now)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			s.runOnce(ctx)
		}
	}
}

// nextFire returns the next occurrence of the configured wall-clock time
// strictly after now.
func (s *AutoStop) nextFire(now time.Time) time.Time {
	fire := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, now.Location())
	if !fire.After(now) {
		fire = fire.AddDate(0, 0, 1)
	}
	return fire
}

// runOnce executes one reconciliation, isolating panics and errors so the
// loop always reaches the next scheduled run.
func (s *AutoStop) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("auto-stop job panicked", "panic", r)
		}
	}()

	closed, err := s.reconciler.ReconcileStale(ctx)
	if err != nil {
		s.logger.Error("auto-stop job failed", "error", err)
		return
	}
	s.logger.Info("auto-stop job completed", "closed", closed)
}
