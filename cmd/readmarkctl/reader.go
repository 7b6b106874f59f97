// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package main

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomtom215/readmark/internal/database"
	"github.com/tomtom215/readmark/internal/logging"
)

func newReaderCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reader",
		Short: "Inspect bound readers and manage moderator rights",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List bound readers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			readers, err := db.ListReaders(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "OPENID\tCARD\tTYPE\tNICKNAME\tADMIN")
			for _, r := range readers {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%t\n", r.OpenID, r.ReaderCard, r.ReaderType.Label(), r.Nickname, r.IsAdmin)
			}
			return tw.Flush()
		},
	}

	var revoke bool
	promoteCmd := &cobra.Command{
		Use:   "promote <openid>",
		Short: "Grant (or with --revoke, remove) the moderator role",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := a.database()
			if err != nil {
				return err
			}
			openid := args[0]
			err = db.SetAdmin(cmd.Context(), openid, !revoke)
			if errors.Is(err, database.ErrNotFound) {
				return fmt.Errorf("no bound reader with openid %s", openid)
			}
			if err != nil {
				return err
			}
			trail, err := a.auditTrail(cmd.Context())
			if err != nil {
				return err
			}
			trail.AdminChanged(operatorActor, openid, !revoke)
			logging.Info().Str("openid", openid).Bool("admin", !revoke).Msg("Reader role updated")
			return nil
		},
	}
	promoteCmd.Flags().BoolVar(&revoke, "revoke", false, "remove the moderator role instead")

	cmd.AddCommand(listCmd, promoteCmd)
	return cmd
}
