package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/stockcount/pkg/metrics"
	"github.com/rs/zerolog/log"
)

const defaultInterval = 15 * time.Minute

// ServiceParams configure the cron service.
type ServiceParams struct {
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	Interval time.Duration
}

// Service executes registered jobs on a fixed cadence. Jobs decide for
// themselves whether a cycle is their time to act.
type Service struct {
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	interval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		registry: registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run starts the loop until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if err := s.RunCycle(ctx); err != nil {
		log.Error().Err(err).Msg("cron: scheduled run failed")
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("cron: context canceled")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunCycle(ctx); err != nil {
				log.Error().Err(err).Msg("cron: scheduled run failed")
			}
		}
	}
}

// RunCycle runs every job once under the lock. A failing job never stops
// the jobs after it.
func (s *Service) RunCycle(ctx context.Context) error {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("lock acquire: %w", err)
	}
	if !locked {
		log.Info().Msg("cron: another instance is running, skipping cycle")
		return nil
	}
	defer func() {
		if relErr := s.lock.Release(ctx); relErr != nil {
			log.Error().Err(relErr).Msg("cron: failed to release lock")
		}
	}()

	for _, job := range s.registry.Jobs() {
		s.runJob(ctx, job)
	}
	return nil
}

// RunJob runs the named job immediately, outside the schedule.
func (s *Service) RunJob(ctx context.Context, name string) error {
	job, ok := s.registry.Find(name)
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.runJob(ctx, job)
}

func (s *Service) runJob(ctx context.Context, job Job) error {
	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)

	if err != nil {
		log.Error().
			Err(err).
			Str("job", job.Name()).
			Int64("duration_ms", duration.Milliseconds()).
			Msg("cron: job failed")
		s.metrics.IncFailure(job.Name())
		return err
	}
	log.Debug().
		Str("job", job.Name()).
		Int64("duration_ms", duration.Milliseconds()).
		Msg("cron: job completed")
	s.metrics.IncSuccess(job.Name())
	return nil
}
