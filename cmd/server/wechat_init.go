// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/readmark/internal/audit"
	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/database"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/opac"
	"github.com/tomtom215/readmark/internal/recommend"
	"github.com/tomtom215/readmark/internal/scheduler"
	"github.com/tomtom215/readmark/internal/supervisor"
	"github.com/tomtom215/readmark/internal/wechat"
)

const menuTimeout = 15 * time.Second

// WeChatComponents holds the official account components.
type WeChatComponents struct {
	client  *wechat.Client
	webhook http.Handler
	closer  io.Closer

	// oauthEnabled is false without app credentials; the web login and
	// pushes need both.
	oauthEnabled bool
}

// Close releases the conversation store.
func (c *WeChatComponents) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// initWeChat builds the platform client, the conversation store and the
// webhook handler, and publishes the menu when CREATE_MENU=true.
func initWeChat(ctx context.Context, cfg *config.Config, db *database.DB, library opac.HistorySource, selector *recommend.Selector, trail *audit.Logger) (*WeChatComponents, error) {
	convs, closer, err := wechat.NewConversationStore(cfg.WeChat.ConversationStore, cfg.WeChat.ConversationStorePath)
	if err != nil {
		return nil, fmt.Errorf("conversation store: %w", err)
	}
	logging.Info().
		Str("store", cfg.WeChat.ConversationStore).
		Dur("idle_timeout", cfg.WeChat.ConversationIdleTimeout).
		Bool("bind_single_shot", cfg.WeChat.BindSingleShot).
		Msg("Conversation store initialized")

	gateway := wechat.NewGateway(wechat.GatewayDeps{
		Readers:       db,
		History:       library,
		Recommender:   selector,
		Conversations: convs,
		Audit:         trail,
	}, &cfg.WeChat, &cfg.Library)

	c := &WeChatComponents{
		client:       wechat.NewClient(&cfg.WeChat),
		webhook:      wechat.NewHandler(cfg.WeChat.Token, gateway),
		closer:       closer,
		oauthEnabled: cfg.WeChat.AppID != "" && cfg.WeChat.AppSecret != "",
	}

	if cfg.WeChat.CreateMenu {
		menuCtx, cancel := context.WithTimeout(ctx, menuTimeout)
		defer cancel()
		err := c.client.CreateMenu(menuCtx, wechat.DefaultMenu(cfg.LoginURL()))
		trail.MenuPublished("server", audit.ActorSystem, err)
		if err != nil {
			// The account keeps its previous menu; serving continues.
			logging.Warn().Err(err).Msg("Failed to create official account menu")
		} else {
			logging.Info().Str("login_url", cfg.LoginURL()).Msg("Official account menu created")
		}
	}

	return c, nil
}

// addScheduler adds the recommendation push to the background layer when
// SCHEDULE_ENABLED=true.
func addScheduler(tree *supervisor.SupervisorTree, cfg *config.Config, db *database.DB, library opac.HistorySource, selector *recommend.Selector, pusher wechat.Pusher) error {
	if !cfg.Schedule.Enabled {
		logging.Info().Msg("Scheduled recommendations disabled (SCHEDULE_ENABLED=false)")
		return nil
	}

	job := scheduler.NewJob(scheduler.JobDeps{
		Readers:     db,
		History:     library,
		Recommender: selector,
		Pusher:      pusher,
	}, &cfg.Schedule)

	sched, err := scheduler.NewScheduler(job, &cfg.Schedule)
	if err != nil {
		return err
	}
	tree.AddBackgroundService(sched)

	logging.Info().
		Str("cron", cfg.Schedule.Cron).
		Str("timezone", cfg.Schedule.Timezone).
		Time("next_run", sched.NextRun(time.Now())).
		Msg("Recommendation scheduler added to supervisor tree")
	return nil
}
