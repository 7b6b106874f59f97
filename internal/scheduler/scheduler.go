// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/logging"
)

// Runner is one scheduled unit of work.
type Runner interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler runs a Runner at each cron tick. It implements suture.Service.
type Scheduler struct {
	runner Runner
	cron   *Cron
	loc    *time.Location
	logger zerolog.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

// NewScheduler parses the configured cron expression and timezone.
func NewScheduler(runner Runner, cfg *config.ScheduleConfig) (*Scheduler, error) {
	c, err := ParseCron(cfg.Cron)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid schedule timezone %q: %w", cfg.Timezone, err)
	}
	return &Scheduler{
		runner: runner,
		cron:   c,
		loc:    loc,
		logger: logging.WithComponent("scheduler"),
		now:    time.Now,
		after:  time.After,
	}, nil
}

// NextRun returns the next tick after t.
func (s *Scheduler) NextRun(t time.Time) time.Time {
	return s.cron.Next(t, s.loc)
}

// Serve waits for each tick and runs the job until ctx is cancelled. Runs do
// not overlap: a run that outlasts the next tick delays it.
func (s *Scheduler) Serve(ctx context.Context) error {
	for {
		next := s.NextRun(s.now())
		if next.IsZero() {
			return fmt.Errorf("cron expression %q never fires", s.cron)
		}
		s.logger.Info().Time("next_run", next).Msg("Scheduled recommendations armed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.after(next.Sub(s.now())):
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := s.runner.Run(ctx); err != nil {
			s.logger.Error().Err(err).Msg("Scheduled recommendation run failed")
		}
	}
}

func (s *Scheduler) String() string {
	return "recommendation-scheduler"
}
