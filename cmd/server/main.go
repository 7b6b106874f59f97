// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/readmark/internal/api"
	"github.com/tomtom215/readmark/internal/audit"
	"github.com/tomtom215/readmark/internal/auth"
	"github.com/tomtom215/readmark/internal/authz"
	"github.com/tomtom215/readmark/internal/backup"
	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/database"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/opac"
	"github.com/tomtom215/readmark/internal/recommend"
	"github.com/tomtom215/readmark/internal/supervisor"
	"github.com/tomtom215/readmark/internal/supervisor/services"
)

const (
	httpShutdownTimeout    = 10 * time.Second
	sessionCleanupInterval = 5 * time.Minute
)

//nolint:gocyclo // Main initialization function with sequential setup steps
func main() {
	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().Msg("Starting Readmark with supervisor tree")
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Str("public_base_url", cfg.Server.PublicBaseURL).
		Bool("schedule_enabled", cfg.Schedule.Enabled).
		Msg("Configuration loaded")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Chat replies and scheduled pushes share one breaker.
	library := opac.NewCachedSource(
		opac.NewBreakerClient(opac.NewClient(&cfg.Library), opac.BreakerSettings{}),
		cfg.Library.CacheTTL,
	)
	if cfg.Library.AppID == "" || cfg.Library.AppKey == "" {
		logging.Warn().Msg("Library API credentials not set (HW_APP_ID, HW_APP_KEY); recommendations fall back to random picks")
	}

	selector := recommend.NewSelector(db, cfg.Recommend)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === AUDIT TRAIL ===
	var trail *audit.Logger
	if cfg.Audit.Enabled {
		auditStore := audit.NewDuckDBStore(db.Conn())
		if err := auditStore.CreateTable(ctx); err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize audit table")
		}
		trail = audit.NewLogger(auditStore, &cfg.Audit)
		defer func() {
			if err := trail.Close(); err != nil {
				logging.Error().Err(err).Msg("Error flushing audit trail")
			}
		}()
		logging.Info().Int("retention_days", cfg.Audit.RetentionDays).Msg("Audit trail enabled")
	}

	wc, err := initWeChat(ctx, cfg, db, library, selector, trail)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize WeChat")
	}
	defer func() {
		if err := wc.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing conversation store")
		}
	}()

	// === WEB SESSIONS ===
	storeFactory, err := auth.NewSessionStoreFactory(auth.SessionStoreType(cfg.Security.SessionStore), cfg.Security.SessionStorePath)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize session store")
	}
	defer func() {
		if err := storeFactory.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing session store")
		}
	}()
	sessionStore := storeFactory.CreateStore()
	sessions := auth.NewSessionMiddleware(sessionStore, auth.SessionMiddlewareConfigFrom(&cfg.Security))

	if cfg.Security.SessionStore == string(auth.SessionStoreMemory) && cfg.IsProduction() {
		logging.Warn().Msg("Session store is 'memory'; web sessions are lost on restart. Consider SESSION_STORE=badger")
	}

	secret := cfg.Security.SessionSecret
	if secret == "" {
		secret = uuid.NewString()
		logging.Warn().Msg("SECRET_KEY not set; using a random key, pending OAuth logins fail after a restart")
	}
	stateSigner, err := auth.NewStateSigner(secret)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize OAuth state signer")
	}

	enforcer, err := authz.NewEnforcer(nil)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authorization policy")
	}
	authorizer := authz.NewAuthorizer(enforcer, cfg.Security.AdminOpenIDs)
	if len(cfg.Security.AdminOpenIDs) > 0 {
		logging.Info().Int("count", len(cfg.Security.AdminOpenIDs)).Msg("Admin openids configured")
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}

	// === HTTP ===
	deps := api.HandlerDeps{
		DB:          db,
		Sessions:    sessions,
		State:       stateSigner,
		Authz:       authorizer,
		Audit:       trail,
		RedirectURI: cfg.OAuthRedirectURI(),
	}
	if wc.oauthEnabled {
		deps.OAuth = wc.client
	} else {
		logging.Warn().Msg("WECHAT_APPID or WECHAT_SECRET not set; web login is disabled")
	}
	handler, err := api.NewHandler(deps)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize HTTP handler")
	}

	router := api.NewRouter(handler, wc.webhook, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === SUPERVISOR TREE ===
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Background layer services
	tree.AddBackgroundService(services.NewSessionCleanupService(sessionStore, sessionCleanupInterval))
	if trail != nil {
		tree.AddBackgroundService(trail)
	}
	if cfg.Backup.Enabled {
		backups, err := backup.NewManager(&cfg.Backup, db)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to initialize backup manager")
		}
		backups.SetOnBackupComplete(func(b *backup.Backup, err error) {
			id := ""
			if b != nil {
				id = b.ID
			}
			trail.BackupCreated("server", audit.ActorSystem, id, err)
		})
		tree.AddBackgroundService(backups)
		logging.Info().Str("dir", cfg.Backup.Dir).Dur("interval", cfg.Backup.Interval).Msg("Scheduled backups enabled")
	}
	if err := addScheduler(tree, cfg, db, library, selector, wc.client); err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize recommendation scheduler")
	}

	// API layer services
	tree.AddAPIService(services.NewHTTPServerService(server, httpShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// The channel delivers exactly one result and is never closed.
	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) {
		logging.Error().Err(serveErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
