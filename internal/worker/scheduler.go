package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"

	applog "fuellog/internal/log"
)

// DefaultSchedule runs the pending sync every five minutes.
const DefaultSchedule = "0 */5 * * * *"

// Scheduler runs a job on a cron schedule with seconds precision. A run
// still in progress when the next one is due causes that run to be skipped.
type Scheduler struct {
	spec   string
	job    func(context.Context) error
	logger *applog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

func NewScheduler(spec string, job func(context.Context) error, logger *applog.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultSchedule
	}
	if logger == nil {
		logger = applog.Default(applog.ComponentWorker)
	}
	return &Scheduler{spec: spec, job: job, logger: logger}
}

// Start schedules the job. Each run gets ctx; cancel it to abort runs.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return errors.New("scheduler is already running")
	}

	cl := cronLogger{s.logger}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(s.spec, func() {
		if err := s.job(ctx); err != nil {
			s.logger.ErrorContext(ctx, "Scheduled job failed", "schedule", s.spec, "error", err)
		}
	}); err != nil {
		return fmt.Errorf("error scheduling cron job: %w", err)
	}

	c.Start()
	s.cron, s.running = c, true
	s.logger.InfoContext(ctx, "Scheduler started", "schedule", s.spec)
	return nil
}

// Stop prevents new runs and waits for a run in progress, or for ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c := s.cron
	s.running = false
	s.mu.Unlock()

	select {
	case <-c.Stop().Done():
		s.logger.InfoContext(ctx, "Scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// cronLogger adapts the application logger to cron.Logger.
type cronLogger struct {
	l *applog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
