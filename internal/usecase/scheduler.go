package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"Sentinela/internal/ports"
)

// Job is one schedulable unit of work, typically a pipeline run.
type Job struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler wires the cron-like driver with the pipeline use cases.
type Scheduler struct {
	driver ports.Scheduler
	jobs   []Job
	logger *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring jobs.
func NewScheduler(driver ports.Scheduler, logger *slog.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{driver: driver, jobs: jobs, logger: logger}
}

// Start registers every job with a non-empty spec and starts the driver.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	registered := 0
	for _, job := range s.jobs {
		if job.Spec == "" || job.Run == nil {
			continue
		}
		job := job
		err := s.driver.Add(job.Spec, func(trigger time.Time) {
			log := s.logger.With("job", job.Name, "trigger", trigger.Format(time.RFC3339))
			log.Info("job triggered")
			if err := job.Run(ctx); err != nil {
				log.Error("job failed", "error", err)
				return
			}
			log.Info("job finished")
		})
		if err != nil {
			return fmt.Errorf("schedule job %s: %w", job.Name, err)
		}
		registered++
	}

	if registered == 0 {
		return fmt.Errorf("no jobs scheduled")
	}
	return s.driver.Start(ctx)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
