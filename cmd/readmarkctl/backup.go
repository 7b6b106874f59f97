// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package main

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tomtom215/readmark/internal/audit"
	"github.com/tomtom215/readmark/internal/backup"
)

// backupManager returns a manager over the configured database. With
// withDB false the database is left closed, as restore requires.
func (a *app) backupManager(withDB bool) (*backup.Manager, error) {
	var db backup.Database
	if withDB {
		opened, err := a.database()
		if err != nil {
			return nil, err
		}
		db = opened
	}
	return backup.NewManager(&a.cfg.Backup, db)
}

func newBackupCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, verify and restore database snapshots",
	}
	cmd.AddCommand(
		newBackupCreateCmd(a),
		newBackupListCmd(a),
		newBackupVerifyCmd(a),
		newBackupPruneCmd(a),
		newBackupRestoreCmd(a),
	)
	return cmd
}

func newBackupCreateCmd(a *app) *cobra.Command {
	var prune bool
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Snapshot the database now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.backupManager(true)
			if err != nil {
				return err
			}
			trail, err := a.auditTrail(cmd.Context())
			if err != nil {
				return err
			}

			b, err := m.Create(cmd.Context(), backup.TriggerManual)
			id := ""
			if b != nil {
				id = b.ID
			}
			trail.BackupCreated(operatorActor, audit.ActorOperator, id, err)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", b.ID, formatSize(b.Size))

			if prune {
				removed, err := m.Prune()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "pruned %d old backups\n", removed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&prune, "prune", false, "apply the retention count afterwards")
	return cmd
}

func newBackupListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.backupManager(false)
			if err != nil {
				return err
			}
			backups, err := m.List()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tCREATED\tTRIGGER\tSIZE\tSCHEMA")
			for _, b := range backups {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\n",
					b.ID, b.CreatedAt.Local().Format(time.DateTime), b.Trigger, formatSize(b.Size), b.SchemaVersion)
			}
			return tw.Flush()
		},
	}
}

func newBackupVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <id>",
		Short: "Check a snapshot against its recorded checksums",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.backupManager(false)
			if err != nil {
				return err
			}
			if err := m.Verify(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s OK\n", args[0])
			return nil
		},
	}
}

func newBackupPruneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Delete snapshots beyond the retention count",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.backupManager(false)
			if err != nil {
				return err
			}
			removed, err := m.Prune()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "pruned %d backups, keeping %d\n", removed, a.cfg.Backup.RetentionCount)
			return nil
		},
	}
}

func newBackupRestoreCmd(a *app) *cobra.Command {
	var (
		target  string
		confirm bool
	)
	cmd := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace the database with a snapshot (server must be stopped)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm {
				return errors.New("restore replaces the database, pass --yes to confirm")
			}
			if target == "" {
				target = a.cfg.Database.Path
			}
			if target == ":memory:" {
				return errors.New("cannot restore into an in-memory database, pass --target")
			}

			m, err := a.backupManager(false)
			if err != nil {
				return err
			}
			restoreErr := m.Restore(cmd.Context(), args[0], target)

			// The trail lives in the database, so record against the restored copy.
			if target == a.cfg.Database.Path {
				if trail, err := a.auditTrail(cmd.Context()); err == nil {
					trail.BackupRestored(operatorActor, args[0], restoreErr)
				}
			}
			if restoreErr != nil {
				return restoreErr
			}
			fmt.Fprintf(cmd.OutOrStdout(), "restored %s into %s\n", args[0], target)
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "database file to restore into (default: the configured database)")
	cmd.Flags().BoolVar(&confirm, "yes", false, "confirm replacing the database")
	return cmd
}

func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
