// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package api

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/readmark/internal/audit"
	"github.com/tomtom215/readmark/internal/auth"
	"github.com/tomtom215/readmark/internal/authz"
	"github.com/tomtom215/readmark/internal/database"
)

// OAuthClient is the WeChat web OAuth surface used by the login flow.
// Satisfied by *wechat.Client.
type OAuthClient interface {
	AuthorizeURL(redirectURI, state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
}

// HandlerDeps collects the handler's collaborators.
type HandlerDeps struct {
	DB       *database.DB
	OAuth    OAuthClient
	Sessions *auth.SessionMiddleware
	State    *auth.StateSigner
	Authz    *authz.Authorizer
	Audit    *audit.Logger // optional

	// RedirectURI is the OAuth callback registered with the platform.
	RedirectURI string
}

// Handler serves the web pages and their form endpoints.
//
// Handler methods are split across files:
//   - handlers_auth.go: login, OAuth callback, logout
//   - handlers_catalog.go: catalog browse, book detail, book reflections, likes
//   - handlers_reflections.go: reflection feed, my page, moderation, editing, profile
//   - handlers_health.go: liveness and readiness probes
type Handler struct {
	db          *database.DB
	oauth       OAuthClient
	sessions    *auth.SessionMiddleware
	state       *auth.StateSigner
	authz       *authz.Authorizer
	audit       *audit.Logger
	redirectURI string
	pages       *pageRenderer
	startTime   time.Time
}

// NewHandler creates the handler and parses the embedded templates.
func NewHandler(deps HandlerDeps) (*Handler, error) {
	if deps.DB == nil {
		return nil, errors.New("api: database is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("api: session middleware is required")
	}
	if deps.Authz == nil {
		return nil, errors.New("api: authorizer is required")
	}
	pages, err := newPageRenderer()
	if err != nil {
		return nil, err
	}
	return &Handler{
		db:          deps.DB,
		oauth:       deps.OAuth,
		sessions:    deps.Sessions,
		state:       deps.State,
		authz:       deps.Authz,
		audit:       deps.Audit,
		redirectURI: deps.RedirectURI,
		pages:       pages,
		startTime:   time.Now(),
	}, nil
}
