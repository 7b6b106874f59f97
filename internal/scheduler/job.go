// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/metrics"
	"github.com/tomtom215/readmark/internal/models"
	"github.com/tomtom215/readmark/internal/opac"
	"github.com/tomtom215/readmark/internal/recommend"
	"github.com/tomtom215/readmark/internal/wechat"
)

// Reader outcomes within a run.
const (
	OutcomePushed = "pushed"
	OutcomeEmpty  = "empty"
	OutcomeFailed = "failed"
)

// ReaderLister enumerates bound readers.
type ReaderLister interface {
	ListReaders(ctx context.Context) ([]*models.Reader, error)
}

// JobDeps are the collaborators of a Job.
type JobDeps struct {
	Readers     ReaderLister
	History     opac.HistorySource
	Recommender wechat.Recommender
	Pusher      wechat.Pusher
}

// Report summarises one run.
type Report struct {
	Readers  int
	Pushed   int
	Empty    int
	Failed   int
	Duration time.Duration
}

// Job pushes a recommendation to every bound reader.
type Job struct {
	deps          JobDeps
	maxConcurrent int
	timeout       time.Duration
	pageSize      int
	maxPages      int
	logger        zerolog.Logger
}

// NewJob creates the recommendation job.
func NewJob(deps JobDeps, cfg *config.ScheduleConfig) *Job {
	j := &Job{
		deps:          deps,
		maxConcurrent: cfg.MaxConcurrent,
		timeout:       cfg.ExecutionTimeout,
		pageSize:      cfg.PageSize,
		maxPages:      cfg.MaxPages,
		logger:        logging.WithComponent("scheduler"),
	}
	if j.maxConcurrent <= 0 {
		j.maxConcurrent = 4
	}
	if j.timeout <= 0 {
		j.timeout = time.Minute
	}
	if j.pageSize <= 0 {
		j.pageSize = 20
	}
	if j.maxPages <= 0 {
		j.maxPages = 1
	}
	return j
}

// Run processes every bound reader. A failure for one reader is logged and
// counted without stopping the others; Run only returns an error when the
// readers cannot be listed or ctx ends.
func (j *Job) Run(ctx context.Context) (report Report, err error) {
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		metrics.RecordScheduleRun(report.Duration, err)
	}()

	readers, err := j.deps.Readers.ListReaders(ctx)
	if err != nil {
		return report, fmt.Errorf("list readers: %w", err)
	}
	report.Readers = len(readers)
	j.logger.Info().Int("readers", len(readers)).Msg("Starting scheduled recommendations")

	var (
		mu  sync.Mutex
		wg  sync.WaitGroup
		sem = make(chan struct{}, j.maxConcurrent)
	)

dispatch:
	for _, r := range readers {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			break dispatch
		}

		wg.Add(1)
		go func(r *models.Reader) {
			defer wg.Done()
			defer func() { <-sem }()

			outcome := j.runReader(ctx, r)
			metrics.RecordScheduleReader(outcome)

			mu.Lock()
			defer mu.Unlock()
			switch outcome {
			case OutcomePushed:
				report.Pushed++
			case OutcomeEmpty:
				report.Empty++
			default:
				report.Failed++
			}
		}(r)
	}
	wg.Wait()

	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}
	j.logger.Info().
		Int("readers", report.Readers).
		Int("pushed", report.Pushed).
		Int("empty", report.Empty).
		Int("failed", report.Failed).
		Msg("Scheduled recommendations finished")
	return report, err
}

// runReader handles one reader under its own timeout. Panics are recovered
// into a failed outcome.
func (j *Job) runReader(parent context.Context, r *models.Reader) (outcome string) {
	ctx, cancel := context.WithTimeout(logging.ContextWithOpenID(parent, r.OpenID), j.timeout)
	defer cancel()
	log := logging.Ctx(ctx)

	defer func() {
		if p := recover(); p != nil {
			log.Error().Interface("panic", p).Msg("panic during scheduled recommendation")
			outcome = OutcomeFailed
		}
	}()

	items, err := j.deps.History.LoanHistory(ctx, r.ReaderCard, r.ReaderType, j.maxPages, j.pageSize)
	if err != nil {
		log.Warn().Err(err).Int("items", len(items)).Msg("loan history incomplete")
	}

	res := j.deps.Recommender.Recommend(ctx, r.ReaderCard, items)
	if len(res.Books) == 0 {
		return OutcomeEmpty
	}

	content := wechat.ScheduledHeader + recommend.FormatBooks(res.Books)
	if err := j.deps.Pusher.SendText(ctx, r.OpenID, content); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn().Dur("timeout", j.timeout).Msg("scheduled push timed out")
		} else {
			log.Error().Err(err).Msg("failed to push scheduled recommendation")
		}
		return OutcomeFailed
	}
	return OutcomePushed
}
