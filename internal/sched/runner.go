// Package sched runs recurring background jobs: the prediction evaluation
// cycle and any other periodic maintenance the bot needs.
package sched

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job is one recurring unit of work. Run is called on every tick and
// should respect ctx cancellation.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobFunc adapts a function to the Job interface.
type JobFunc struct {
	JobName string
	Fn      func(ctx context.Context) error
}

func (j JobFunc) Name() string                  { return j.JobName }
func (j JobFunc) Run(ctx context.Context) error { return j.Fn(ctx) }

type scheduled struct {
	job      Job
	interval time.Duration
}

// Runner drives a set of jobs, each on its own ticker.
type Runner struct {
	logger *slog.Logger
	jobs   []scheduled

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates an empty runner.
func NewRunner(logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{logger: logger}
}

// Add registers a job to run at the given interval. Must be called
// before Start.
func (r *Runner) Add(job Job, interval time.Duration) {
	r.jobs = append(r.jobs, scheduled{job: job, interval: interval})
}

// Start launches one loop per job. Each job also runs once immediately.
func (r *Runner) Start(ctx context.Context) {
	r.ctx, r.cancel = context.WithCancel(ctx)

	for _, s := range r.jobs {
		r.wg.Add(1)
		go r.loop(s)
	}

	r.logger.Info("scheduler started", "jobs", len(r.jobs))
}

// Stop cancels all jobs and waits for them to finish, or until ctx
// expires.
func (r *Runner) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) loop(s scheduled) {
	defer r.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	r.runJob(s.job)

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			r.runJob(s.job)
		}
	}
}

// runJob executes one tick. A failing job logs and waits for the next
// tick; it never stops the loop.
func (r *Runner) runJob(job Job) {
	start := time.Now()
	if err := job.Run(r.ctx); err != nil {
		if r.ctx.Err() != nil {
			return
		}
		r.logger.Error("job failed", "job", job.Name(), "err", err)
		return
	}
	r.logger.Info("job completed", "job", job.Name(), "duration", time.Since(start))
}
