package scheduler

import (
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
)

var (
	ErrEmptyJobName  = errors.New("job name is required")
	ErrEmptyCronExpr = errors.New("cron expression is required")
)

// Service wraps a gocron scheduler for app-wide background jobs.
type Service struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	stopOnce  sync.Once
	stopErr   error
}

func New(logger *slog.Logger) (*Service, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithGlobalJobOptions(
			gocron.WithEventListeners(
				gocron.AfterJobRunsWithPanic(func(jobID uuid.UUID, jobName string, recoverData any) {
					logger.Error("scheduler job panicked",
						"job_id", jobID.String(),
						"job_name", jobName,
						"panic", recoverData,
					)
				}),
			),
		),
	)
	if err != nil {
		return nil, err
	}
	return &Service{scheduler: sched, logger: logger}, nil
}

// AddCronJob registers a cron-based job. Jobs do not run until Start.
func (s *Service) AddCronJob(name, cronExpr string, task func()) (gocron.Job, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrEmptyJobName
	}
	if strings.TrimSpace(cronExpr) == "" {
		return nil, ErrEmptyCronExpr
	}

	jobLogger := s.logger.With("job_name", name, "cron", cronExpr)
	wrappedTask := func() {
		jobLogger.Debug("scheduler job started")
		task()
		jobLogger.Debug("scheduler job completed")
	}

	job, err := s.scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(wrappedTask),
		gocron.WithName(name),
	)
	if err != nil {
		jobLogger.Error("failed to register scheduler job", "error", err)
		return nil, err
	}
	jobLogger.Info("scheduler job registered")
	return job, nil
}

// Start begins running scheduled jobs.
func (s *Service) Start() {
	s.logger.Info("scheduler starting")
	s.scheduler.Start()
}

// Stop shuts down the scheduler and waits for running jobs to finish.
// Safe to call more than once.
func (s *Service) Stop() error {
	s.stopOnce.Do(func() {
		s.logger.Info("scheduler stopping")
		s.stopErr = s.scheduler.Shutdown()
	})
	return s.stopErr
}
