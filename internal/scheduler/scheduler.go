// Package scheduler drives the recurring collection cycle.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/desastrosos/precipwatch/internal/logger"
)

// CycleRunner is one collection cycle. The runner must tolerate being asked
// again after a failure.
type CycleRunner interface {
	RunOnce(ctx context.Context) error
}

// Runner fires a collection cycle immediately and then once per interval,
// never overlapping two cycles.
type Runner struct {
	scheduler *gocron.Scheduler
	runner    CycleRunner
	interval  time.Duration
	l         *logger.Logger

	mu      sync.Mutex
	stopped bool
}

// New creates a runner for the given cycle and interval.
func New(runner CycleRunner, interval time.Duration, l *logger.Logger) *Runner {
	return &Runner{
		scheduler: gocron.NewScheduler(time.UTC),
		runner:    runner,
		interval:  interval,
		l:         l,
	}
}

// Start schedules the recurring cycle, running the first one immediately.
func (r *Runner) Start(ctx context.Context) error {
	_, err := r.scheduler.Every(r.interval).
		StartImmediately().
		SingletonMode().
		Do(func() {
			cycleCtx, cancel := context.WithTimeout(ctx, r.interval)
			defer cancel()

			if err := r.runner.RunOnce(cycleCtx); err != nil {
				r.l.Error(err, map[string]any{"component": "scheduler"})
			}
		})
	if err != nil {
		return err
	}

	r.l.Info("scheduler started", map[string]any{"interval": r.interval.String()})
	r.scheduler.StartAsync()
	return nil
}

// RunFor keeps the schedule alive for d, or until ctx is cancelled.
func (r *Runner) RunFor(ctx context.Context, d time.Duration) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop()

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RunForever keeps the schedule alive until ctx is cancelled.
func (r *Runner) RunForever(ctx context.Context) error {
	if err := r.Start(ctx); err != nil {
		return err
	}
	defer r.Stop()

	<-ctx.Done()
	return ctx.Err()
}

// Stop halts the schedule. Safe to call more than once.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.stopped {
		return
	}
	r.stopped = true
	r.scheduler.Stop()
	r.l.Info("scheduler stopped")
}
