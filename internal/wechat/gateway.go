// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package wechat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/readmark/internal/audit"
	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/database"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/models"
	"github.com/tomtom215/readmark/internal/opac"
	"github.com/tomtom215/readmark/internal/recommend"
	"github.com/tomtom215/readmark/internal/validation"
)

// ReaderStore is the reader persistence the gateway needs. Missing readers
// are reported with database.ErrNotFound.
type ReaderStore interface {
	GetReaderByOpenID(ctx context.Context, openid string) (*models.Reader, error)
	UpsertReader(ctx context.Context, openid, card string, readerType models.ReaderType) error
	DeleteReaderByOpenID(ctx context.Context, openid string) error
}

// Recommender produces a recommendation round.
type Recommender interface {
	Recommend(ctx context.Context, readerID string, history []models.LoanItem) recommend.Result
}

// GatewayDeps are the collaborators of a Gateway.
type GatewayDeps struct {
	Readers       ReaderStore
	History       opac.HistorySource
	Recommender   Recommender
	Conversations ConversationStore
	Audit         *audit.Logger // optional
}

// Gateway dispatches verified messages to replies.
type Gateway struct {
	readers  ReaderStore
	history  opac.HistorySource
	selector Recommender
	convs    ConversationStore
	audit    *audit.Logger
	locks    *keyedMutex

	singleShot  bool
	idleTimeout time.Duration
	maxPages    int
	pageSize    int

	now    func() time.Time
	logger zerolog.Logger
}

// NewGateway creates a gateway. Conversations defaults to an in-memory store.
func NewGateway(deps GatewayDeps, wc *config.WeChatConfig, lc *config.LibraryConfig) *Gateway {
	convs := deps.Conversations
	if convs == nil {
		convs = NewMemoryConversationStore()
	}
	idle := wc.ConversationIdleTimeout
	if idle <= 0 {
		idle = 30 * time.Minute
	}
	return &Gateway{
		readers:     deps.Readers,
		history:     deps.History,
		selector:    deps.Recommender,
		convs:       convs,
		audit:       deps.Audit,
		locks:       newKeyedMutex(),
		singleShot:  wc.BindSingleShot,
		idleTimeout: idle,
		maxPages:    lc.MaxPages,
		pageSize:    lc.PageSize,
		now:         time.Now,
		logger:      logging.WithComponent("wechat"),
	}
}

// HandleMessage returns the reply text for m. An empty string means no reply.
// Messages from the same sender are handled one at a time.
func (g *Gateway) HandleMessage(ctx context.Context, m *Message) (reply string) {
	openid := m.FromUserName
	unlock := g.locks.Lock(openid)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			logging.Ctx(ctx).Error().Interface("panic", r).Msg("panic while handling message")
			reply = busyText
		}
	}()

	now := g.now()
	g.sweep(ctx, now)

	switch m.MsgType {
	case MsgTypeEvent:
		return g.handleEvent(ctx, m, now)
	case MsgTypeText:
		return g.handleText(ctx, m, now)
	default:
		return unsupportedText
	}
}

func (g *Gateway) handleEvent(ctx context.Context, m *Message, now time.Time) string {
	switch m.Event {
	case EventSubscribe:
		return subscribeText
	case EventUnsubscribe:
		logging.Ctx(ctx).Info().Msg("follower unsubscribed")
		return ""
	case EventClick:
		logging.Ctx(ctx).Info().Str("event_key", m.EventKey).Msg("menu click")
		switch m.EventKey {
		case KeyRecommend:
			return g.processRecommendation(ctx, m.FromUserName)
		case KeyBind:
			return g.processBindRequest(ctx, m.FromUserName, now)
		case KeyUnbind:
			return g.processUnbind(ctx, m.FromUserName, now)
		default:
			return unknownMenuText
		}
	default:
		return unknownEventText
	}
}

func (g *Gateway) handleText(ctx context.Context, m *Message, now time.Time) string {
	conv := g.touch(ctx, m.FromUserName, now)
	raw := strings.TrimSpace(m.Content)

	if conv.State == StateAwaiting {
		return g.processBinding(ctx, conv, raw, now)
	}

	switch strings.ToLower(raw) {
	case "推荐", "tuijian":
		return g.processRecommendation(ctx, m.FromUserName)
	case "绑定", "bangding", "bd":
		return g.processBindRequest(ctx, m.FromUserName, now)
	case "解绑", "jiebang", "jb":
		return g.processUnbind(ctx, m.FromUserName, now)
	case "帮助", "help", "?":
		return helpText
	default:
		return welcomeText
	}
}

func (g *Gateway) processBindRequest(ctx context.Context, openid string, now time.Time) string {
	reader, err := g.readers.GetReaderByOpenID(ctx, openid)
	switch {
	case err == nil:
		return alreadyBoundText(reader)
	case !errors.Is(err, database.ErrNotFound):
		logging.Ctx(ctx).Error().Err(err).Msg("failed to look up reader")
		return busyText
	}

	g.setState(ctx, openid, StateAwaiting, now)
	return bindPromptText
}

func (g *Gateway) processBinding(ctx context.Context, conv Conversation, text string, now time.Time) string {
	in, err := validation.ParseBindInput(text)
	if err != nil {
		g.audit.BindFailed(ctx, conv.OpenID, err.Error())
		if g.singleShot {
			g.setState(ctx, conv.OpenID, StateIdle, now)
		}
		var typeErr *validation.BindTypeError
		switch {
		case errors.As(err, &typeErr):
			return bindTypeText(typeErr.Type)
		case errors.Is(err, validation.ErrBindCard):
			return bindCardText
		default:
			return bindFormatText
		}
	}

	if err := g.readers.UpsertReader(ctx, conv.OpenID, in.Card, in.Type); err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to save reader binding")
		if g.singleShot {
			g.setState(ctx, conv.OpenID, StateIdle, now)
		}
		return bindFailedText
	}

	g.setState(ctx, conv.OpenID, StateIdle, now)
	g.audit.ReaderBound(ctx, conv.OpenID, in.Card, in.Type)
	logging.Ctx(ctx).Info().Str("reader_type", string(in.Type)).Msg("reader bound")
	return bindOKText(in.Type, in.Card)
}

func (g *Gateway) processUnbind(ctx context.Context, openid string, now time.Time) string {
	if err := g.readers.DeleteReaderByOpenID(ctx, openid); err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logging.Ctx(ctx).Error().Err(err).Msg("failed to unbind reader")
		}
		return unbindFailedText
	}
	g.audit.ReaderUnbound(ctx, openid)

	if _, ok, _ := g.convs.Get(ctx, openid); ok {
		g.setState(ctx, openid, StateIdle, now)
	}
	return unbindOKText
}

func (g *Gateway) processRecommendation(ctx context.Context, openid string) string {
	reader, err := g.readers.GetReaderByOpenID(ctx, openid)
	if errors.Is(err, database.ErrNotFound) {
		return notBoundText
	}
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("failed to look up reader")
		return busyText
	}

	items, err := g.history.LoanHistory(ctx, reader.ReaderCard, reader.ReaderType, g.maxPages, g.pageSize)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int("items", len(items)).Msg("loan history incomplete")
	}

	if len(items) == 0 {
		res := g.selector.Recommend(ctx, reader.ReaderCard, nil)
		return noHistoryHeader + recommend.FormatBooks(res.Books)
	}
	res := g.selector.Recommend(ctx, reader.ReaderCard, items)
	return recommendHeader + recommend.FormatBooks(res.Books)
}

// touch loads or creates the sender's conversation and marks it active.
func (g *Gateway) touch(ctx context.Context, openid string, now time.Time) Conversation {
	conv, ok, err := g.convs.Get(ctx, openid)
	if err != nil {
		g.logger.Error().Err(err).Str("openid", openid).Msg("failed to load conversation")
	}
	if !ok {
		conv = Conversation{OpenID: openid, State: StateIdle}
	}
	conv.LastActive = now
	if err := g.convs.Put(ctx, conv); err != nil {
		g.logger.Error().Err(err).Str("openid", openid).Msg("failed to save conversation")
	}
	return conv
}

func (g *Gateway) setState(ctx context.Context, openid string, state State, now time.Time) {
	c := Conversation{OpenID: openid, State: state, LastActive: now}
	if err := g.convs.Put(ctx, c); err != nil {
		g.logger.Error().Err(err).Str("openid", openid).Msg("failed to save conversation")
	}
}

func (g *Gateway) sweep(ctx context.Context, now time.Time) {
	n, err := g.convs.Sweep(ctx, now.Add(-g.idleTimeout))
	if err != nil {
		g.logger.Warn().Err(err).Msg("failed to sweep idle conversations")
		return
	}
	if n > 0 {
		g.logger.Debug().Int("evicted", n).Msg("evicted idle conversations")
	}
}
