package service

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// SweepLocker elects one sweeping replica. Nil-able: without a lock the
// sweeper always proceeds.
type SweepLocker interface {
	TryLock(ctx context.Context) (bool, error)
}

// UrgencySweeper drives UrgencyService on a fixed interval. Invocations that
// would overlap a still-running sweep are skipped rather than queued; the
// sweep is idempotent, the guard only bounds resource usage.
type UrgencySweeper struct {
	svc      UrgencyService
	interval time.Duration
	lock     SweepLocker

	inflight  atomic.Bool
	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func NewUrgencySweeper(svc UrgencyService, interval time.Duration, lock SweepLocker) *UrgencySweeper {
	return &UrgencySweeper{
		svc:       svc,
		interval:  interval,
		lock:      lock,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until Stop is called or the context is cancelled. Sweep errors
// are logged and swallowed; the loop always reaches its next tick.
func (w *UrgencySweeper) Run(ctx context.Context) {
	defer close(w.stoppedCh)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.InfoContext(ctx, "urgency sweeper started", "interval", w.interval)

	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "urgency sweeper stopping", "reason", "context cancelled")
			return
		case <-w.stopCh:
			slog.InfoContext(ctx, "urgency sweeper stopping", "reason", "stop requested")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// Stop signals Run to exit and waits for it to finish.
func (w *UrgencySweeper) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *UrgencySweeper) sweep(ctx context.Context) {
	if !w.inflight.CompareAndSwap(false, true) {
		slog.WarnContext(ctx, "previous urgency sweep still running, skipping tick")
		return
	}
	defer w.inflight.Store(false)

	if w.lock != nil {
		held, err := w.lock.TryLock(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "failed to acquire sweep lock", "error", err)
			return
		}
		if !held {
			slog.DebugContext(ctx, "sweep lock held by another replica, skipping")
			return
		}
	}

	start := time.Now()
	stats, err := w.svc.SweepOnce(ctx, start)
	if err != nil {
		slog.ErrorContext(ctx, "urgency sweep failed", "error", err)
		return
	}
	slog.InfoContext(ctx, "urgency sweep finished",
		"companies", stats.CompaniesSwept,
		"marked", stats.Marked,
		"cleared", stats.Cleared,
		"took", time.Since(start).Round(time.Millisecond))
}
