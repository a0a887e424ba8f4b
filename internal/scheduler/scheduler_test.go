package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeReconciler struct {
	calls  atomic.Int64
	closed int
	err    error
	panics bool
}

func (f *fakeReconciler) ReconcileStale(ctx context.Context) (int, error) {
	f.calls.Add(1)
	if f.panics {
		panic("reconciler blew up")
	}
	return f.closed, f.err
}

func TestNextFire(t *testing.T) {
	s := NewAutoStop(&fakeReconciler{}, 12, 55, nil)

	morning := time.Date(2025, 9, 1, 8, 0, 0, 0, time.Local)
	fire := s.nextFire(morning)
	require.Equal(t, time.Date(2025, 9, 1, 12, 55, 0, 0, time.Local), fire)

	afternoon := time.Date(2025, 9, 1, 13, 0, 0, 0, time.Local)
	fire = s.nextFire(afternoon)
	require.Equal(t, time.Date(2025, 9, 2, 12, 55, 0, 0, time.Local), fire)

	// Exactly at the fire time the next occurrence is tomorrow's.
	exact := time.Date(2025, 9, 1, 12, 55, 0, 0, time.Local)
	fire = s.nextFire(exact)
	require.Equal(t, time.Date(2025, 9, 2, 12, 55, 0, 0, time.Local), fire)
}

func TestRunOnceIsolatesErrors(t *testing.T) {
	rec := &fakeReconciler{err: errors.New("db unavailable")}
	s := NewAutoStop(rec, 12, 55, nil)

	s.runOnce(context.Background())
	require.Equal(t, int64(1), rec.calls.Load())
}

func TestRunOnceIsolatesPanics(t *testing.T) {
	rec := &fakeReconciler{panics: true}
	s := NewAutoStop(rec, 12, 55, nil)

	require.NotPanics(t, func() { s.runOnce(context.Background()) })
	require.Equal(t, int64(1), rec.calls.Load())
}

func TestStartStopLifecycle(t *testing.T) {
	rec := &fakeReconciler{}
	s := NewAutoStop(rec, 12, 55, nil)

	s.Start()
	s.Start() // second Start is a no-op

	s.Stop()
	s.Stop() // second Stop is a no-op
}

func TestLoopFiresAtScheduledTime(t *testing.T) {
	rec := &fakeReconciler{closed: 2}

	// Pin the clock just before the fire time so the first wait is tiny.
	restore := timeNow
	defer func() { timeNow = restore }()
	timeNow = func() time.Time {
		return time.Date(2025, 9, 1, 12, 54, 59, int(950*time.Millisecond), time.Local)
	}

	s := NewAutoStop(rec, 12, 55, nil)
	s.Start()
	defer s.Stop()

	require.Eventually(t, func() bool {
		return rec.calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
}
