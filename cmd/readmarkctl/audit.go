// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/readmark/internal/audit"
)

func newAuditCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the account and moderation audit trail",
	}

	var (
		types []string
		actor string
		since time.Duration
		limit int
	)
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List recent audit events, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.auditStore(cmd.Context())
			if err != nil {
				return err
			}
			filter := audit.QueryFilter{ActorID: actor, Limit: limit}
			for _, t := range types {
				filter.Types = append(filter.Types, audit.EventType(t))
			}
			if since > 0 {
				filter.Since = time.Now().Add(-since)
			}

			events, err := store.Query(cmd.Context(), filter)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TIME\tTYPE\tOUTCOME\tACTOR\tTARGET\tDESCRIPTION")
			for _, e := range events {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					e.Timestamp.Local().Format(time.DateTime), e.Type, e.Outcome, e.ActorID, e.TargetID, e.Description)
			}
			return tw.Flush()
		},
	}
	listCmd.Flags().StringSliceVar(&types, "type", nil, "only these event types (repeatable)")
	listCmd.Flags().StringVar(&actor, "actor", "", "only events by this openid or operator")
	listCmd.Flags().DurationVar(&since, "since", 0, "only events newer than this, e.g. 72h")
	listCmd.Flags().IntVar(&limit, "limit", 100, "maximum number of events")

	cmd.AddCommand(listCmd)
	return cmd
}
