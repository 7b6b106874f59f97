// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package main

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/tomtom215/readmark/internal/opac"
	"github.com/tomtom215/readmark/internal/recommend"
	"github.com/tomtom215/readmark/internal/scheduler"
	"github.com/tomtom215/readmark/internal/wechat"
)

// printPusher writes pushes to w instead of the platform.
type printPusher struct {
	mu sync.Mutex
	w  io.Writer
}

func (p *printPusher) SendText(_ context.Context, openid, content string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := fmt.Fprintf(p.w, "--- %s\n%s\n", openid, content)
	return err
}

func newRecommendCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Recommendation tasks",
	}

	var dryRun bool
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduled recommendation push once, now",
		Long: "Runs the same job the server's scheduler runs: every bound reader gets a\n" +
			"recommendation based on their loan history. With --dry-run the messages are\n" +
			"printed instead of sent; recommendation history is still recorded.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}

			var pusher wechat.Pusher = wechat.NewClient(&a.cfg.WeChat)
			if dryRun {
				pusher = &printPusher{w: cmd.OutOrStdout()}
			}

			job := scheduler.NewJob(scheduler.JobDeps{
				Readers:     db,
				History:     opac.NewBreakerClient(opac.NewClient(&a.cfg.Library), opac.BreakerSettings{}),
				Recommender: recommend.NewSelector(db, a.cfg.Recommend),
				Pusher:      pusher,
			}, &a.cfg.Schedule)

			report, err := job.Run(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "readers=%d pushed=%d empty=%d failed=%d duration=%s\n",
				report.Readers, report.Pushed, report.Empty, report.Failed, report.Duration)
			return err
		},
	}
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print messages instead of pushing them")

	cmd.AddCommand(runCmd)
	return cmd
}
