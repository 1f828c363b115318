// Package scheduler drives periodic jobs until the context is cancelled.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is one periodic unit of work. A failing run is logged and the job
// keeps its schedule.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

type Scheduler struct {
	jobs []Job
	log  *zap.Logger
}

func New(logger *zap.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{jobs: jobs, log: logger}
}

// Run starts every job on its own ticker and blocks until ctx is done.
// Each job runs once immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, job := range s.jobs {
		if job.Every <= 0 || job.Run == nil {
			s.log.Warn("skipping job", zap.String("job", job.Name), zap.Duration("every", job.Every))
			continue
		}
		g.Go(func() error {
			s.loop(ctx, job)
			return nil
		})
	}
	return g.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job Job) {
	s.log.Info("job started", zap.String("job", job.Name), zap.Duration("every", job.Every))

	s.runOnce(ctx, job)

	ticker := time.NewTicker(job.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx, job)
		case <-ctx.Done():
			s.log.Info("job stopped", zap.String("job", job.Name))
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job Job) {
	if ctx.Err() != nil {
		return
	}
	if err := job.Run(ctx); err != nil && ctx.Err() == nil {
		s.log.Warn("job failed", zap.String("job", job.Name), zap.Error(err))
	}
}
