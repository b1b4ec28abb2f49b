// Package scheduler runs periodic rebuilds while the dev server is up.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/margin/internal/build"
	"git.home.luguber.info/inful/margin/internal/logfields"
)

// Rebuilder is the part of build.Coordinator the scheduler drives.
type Rebuilder interface {
	Run(ctx context.Context) (build.Outcome, error)
}

// Scheduler wraps a gocron scheduler.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger

	mu  sync.Mutex
	ctx context.Context
}

// New creates a stopped scheduler.
func New(logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s, logger: logger, ctx: context.Background()}, nil
}

// Start begins running jobs. ctx is handed to every job run.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.logger.Info("Starting scheduler", slog.Int("jobs", len(s.scheduler.Jobs())))
	s.scheduler.Start()
}

// Stop shuts the scheduler down and waits for running jobs.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs fn every interval. A run that is still in progress when
// the next tick arrives causes that tick to be skipped.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, fn func(ctx context.Context)) (string, error) {
	if interval <= 0 {
		return "", fmt.Errorf("interval must be positive, got %s", interval)
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() { fn(s.context()) }),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create job %s: %w", name, err)
	}
	return job.ID().String(), nil
}

// SchedulePeriodicBuild asks rb for a rebuild every interval.
func (s *Scheduler) SchedulePeriodicBuild(interval time.Duration, rb Rebuilder) (string, error) {
	return s.ScheduleEvery("periodic-rebuild", interval, func(ctx context.Context) {
		s.logger.Info("Executing scheduled build", slog.Duration("interval", interval))
		outcome, err := rb.Run(ctx)
		if err != nil {
			s.logger.Error("Scheduled build failed", logfields.Error(err))
			return
		}
		s.logger.Debug("Scheduled build finished", slog.String("outcome", outcome.String()))
	})
}

func (s *Scheduler) context() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}
