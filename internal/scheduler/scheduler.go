package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"github.com/dukerupert/opsconsole/internal/datewindow"
)

var (
	ErrEmptyJobName  = errors.New("job name is required")
	ErrEmptyCronExpr = errors.New("cron expression is required")
)

// SweepJobName is the name the auto-disable sweep registers under.
const SweepJobName = "day_off_auto_disable"

// Sweep is the work the nightly job performs.
type Sweep interface {
	Run(now time.Time) ([]string, error)
}

// Scheduler wraps a gocron scheduler running in the business timezone.
type Scheduler struct {
	scheduler gocron.Scheduler
	loc       *time.Location
	logger    *slog.Logger
	stopOnce  sync.Once
	stopErr   error
}

// New creates a scheduler. Cron expressions are evaluated in loc.
func New(loc *time.Location, logger *slog.Logger) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "scheduler")

	sched, err := gocron.NewScheduler(
		gocron.WithLocation(loc),
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					logger.Error("scheduler job panicked", "job_id", jobID.String(), "job_name", jobName, "panic", recoverData)
				}),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	return &Scheduler{scheduler: sched, loc: loc, logger: logger}, nil
}

// AddJob registers a cron-based job.
func (s *Scheduler) AddJob(name, cronExpr string, task func()) (gocron.Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}
	jobLogger := s.logger.With("job_name", name, "cron", cronExpr)

	wrapped := func() {
		jobLogger.Debug("scheduler job started")
		task()
		jobLogger.Debug("scheduler job completed")
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrapped),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, fmt.Errorf("register job %s: %w", name, err)
	}
	jobLogger.Info("scheduler job registered")
	return job, nil
}

// AddSweep runs sweep on cronExpr with the business-local calendar date.
func (s *Scheduler) AddSweep(cronExpr string, sweep Sweep) (gocron.Job, error) {
	return s.AddJob(SweepJobName, cronExpr, func() {
		today := s.Today()
		ids, err := sweep.Run(today)
		if err != nil {
			s.logger.Error("auto-disable sweep failed", "date", datewindow.Format(today), "error", err)
			return
		}
		s.logger.Info("auto-disable sweep finished", "date", datewindow.Format(today), "disabled", len(ids))
	})
}

// Today is the current calendar date in the scheduler's timezone.
func (s *Scheduler) Today() time.Time {
	return datewindow.Normalize(time.Now().In(s.loc))
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.logger.Info("scheduler starting", "timezone", s.loc.String())
	s.scheduler.Start()
}

// Stop shuts down the scheduler and waits for running jobs.
func (s *Scheduler) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("scheduler stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}
