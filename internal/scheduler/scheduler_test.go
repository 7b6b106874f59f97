// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/readmark/internal/config"
)

type countingRunner struct {
	runs chan struct{}
}

func (r *countingRunner) Run(context.Context) (Report, error) {
	r.runs <- struct{}{}
	return Report{}, nil
}

func TestNewScheduler_Validates(t *testing.T) {
	if _, err := NewScheduler(&countingRunner{}, &config.ScheduleConfig{Cron: "bad"}); err == nil {
		t.Error("invalid cron accepted")
	}
	if _, err := NewScheduler(&countingRunner{}, &config.ScheduleConfig{Cron: "0 10 1,16 * *", Timezone: "Mars/Olympus"}); err == nil {
		t.Error("invalid timezone accepted")
	}
}

func TestScheduler_Serve(t *testing.T) {
	runner := &countingRunner{runs: make(chan struct{}, 4)}
	s, err := NewScheduler(runner, &config.ScheduleConfig{Cron: "0 10 1,16 * *", Timezone: "UTC"})
	if err != nil {
		t.Fatalf("NewScheduler() error: %v", err)
	}

	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	waits := make(chan time.Duration, 1)
	fire := make(chan time.Time)
	s.after = func(d time.Duration) <-chan time.Time {
		waits <- d
		now = now.Add(d)
		return fire
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx) }()

	// Two ticks: Oct 16 10:00 then Nov 1 10:00.
	want := []time.Duration{46 * time.Hour, 16 * 24 * time.Hour}
	for i, w := range want {
		if got := <-waits; got != w {
			t.Errorf("wait %d = %v, want %v", i, got, w)
		}
		fire <- time.Time{}
		<-runner.runs
	}

	<-waits // armed for Nov 16
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() = %v, want context.Canceled", err)
	}
}
