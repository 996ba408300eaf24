package services

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/abrezinsky/tennisbracket/internal/logger"
)

// Refresher refreshes every open session
type Refresher interface {
	RefreshAll(ctx context.Context) int
}

// Scheduler periodically refreshes open sessions so clients see results as
// they are posted.
type Scheduler struct {
	log       logger.Logger
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	sched     gocron.Scheduler
	job       gocron.Job
}

// NewScheduler creates a Scheduler. A zero interval disables it.
func NewScheduler(log logger.Logger, refresher Refresher, interval time.Duration) *Scheduler {
	return &Scheduler{log: log, refresher: refresher, interval: interval, timeout: 2 * time.Minute}
}

// Start begins the refresh job. Runs never overlap; a run that takes longer
// than the interval pushes the next one back.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		s.log.Info("scheduled refresh disabled")
		return nil
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("create scheduler: %w", err)
	}
	job, err := sched.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.run),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("schedule refresh: %w", err)
	}
	s.sched, s.job = sched, job
	sched.Start()
	s.log.Info("scheduled refresh started", "interval", s.interval)
	return nil
}

func (s *Scheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	n := s.refresher.RefreshAll(ctx)
	s.log.Debug("scheduled refresh", "sessions", n)
}

// RunNow triggers the refresh job immediately
func (s *Scheduler) RunNow() error {
	if s.job == nil {
		return nil
	}
	return s.job.RunNow()
}

// Stop shuts the scheduler down, waiting for a running refresh to finish
func (s *Scheduler) Stop() error {
	if s.sched == nil {
		return nil
	}
	err := s.sched.Shutdown()
	s.sched, s.job = nil, nil
	return err
}
