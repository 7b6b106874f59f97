// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

// Command readmarkctl runs one-off operator tasks against a Readmark
// deployment: publishing the official account menu, importing the catalog,
// granting moderator rights, triggering a recommendation run and managing
// database snapshots.
//
// It reads the same configuration as the server (config file and
// environment), so it is usually run inside the server's container:
//
//	readmarkctl catalog import books.csv
//	readmarkctl reader promote o6_bmjrPTlm6_2sgVt7hMZOPfL2M
//	readmarkctl recommend run --dry-run
//	readmarkctl menu create
//	readmarkctl audit list --type reader.bound --since 72h
//	readmarkctl backup create --prune
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/readmark/internal/audit"
	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/database"
	"github.com/tomtom215/readmark/internal/logging"
)

// operatorActor identifies this tool in the audit trail.
const operatorActor = "readmarkctl"

// app carries state shared by subcommands. The database is opened on first use.
type app struct {
	cfg   *config.Config
	db    *database.DB
	trail *audit.Logger
}

func (a *app) database() (*database.DB, error) {
	if a.db != nil {
		return a.db, nil
	}
	db, err := database.New(&a.cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", a.cfg.Database.Path, err)
	}
	a.db = db
	return db, nil
}

func (a *app) auditStore(ctx context.Context) (*audit.DuckDBStore, error) {
	db, err := a.database()
	if err != nil {
		return nil, err
	}
	store := audit.NewDuckDBStore(db.Conn())
	if err := store.CreateTable(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// auditTrail returns nil when auditing is disabled; a nil trail discards events.
func (a *app) auditTrail(ctx context.Context) (*audit.Logger, error) {
	if a.trail != nil || !a.cfg.Audit.Enabled {
		return a.trail, nil
	}
	store, err := a.auditStore(ctx)
	if err != nil {
		return nil, err
	}
	a.trail = audit.NewLogger(store, &a.cfg.Audit)
	return a.trail, nil
}

func (a *app) close() {
	if err := a.trail.Close(); err != nil {
		logging.Error().Err(err).Msg("Error flushing audit trail")
	}
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		logging.Error().Err(err).Msg("Error closing database")
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "readmarkctl",
		Short:         "Operator tasks for Readmark",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg != nil {
				return nil
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			logging.Init(logging.Config{
				Level:  cfg.Logging.Level,
				Format: "console",
				Caller: cfg.Logging.Caller,
			})
			a.cfg = cfg
			return nil
		},
	}

	root.AddCommand(
		newCatalogCmd(a),
		newReaderCmd(a),
		newRecommendCmd(a),
		newMenuCmd(a),
		newAuditCmd(a),
		newBackupCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	a.close()
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
