// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package api

import (
	"errors"
	"net/http"

	"github.com/tomtom215/readmark/internal/auth"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/wechat"
)

// Login starts the WeChat web OAuth flow. The signed state carries the page
// to return to.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if h.oauth == nil || h.state == nil {
		respondText(w, http.StatusServiceUnavailable, "微信授权未配置")
		return
	}
	state, err := h.state.Issue(auth.SafeNext(r.URL.Query().Get("next")))
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to issue OAuth state")
		respondText(w, http.StatusInternalServerError, "授权失败，请稍后再试")
		return
	}
	redirect(w, r, h.oauth.AuthorizeURL(h.redirectURI, state))
}

// WeChatRedirect is the OAuth callback. It trades the code for the
// follower's openid and opens a web session.
func (h *Handler) WeChatRedirect(w http.ResponseWriter, r *http.Request) {
	log := logging.Ctx(r.Context())

	code := r.URL.Query().Get("code")
	if code == "" {
		respondText(w, http.StatusBadRequest, "授权失败，请重试")
		return
	}
	if h.oauth == nil {
		respondText(w, http.StatusServiceUnavailable, "微信授权未配置")
		return
	}

	next := "/"
	if state := r.URL.Query().Get("state"); state != "" && h.state != nil {
		verified, err := h.state.Verify(state)
		if err != nil {
			log.Warn().Err(err).Msg("Rejected OAuth callback state")
			respondText(w, http.StatusBadRequest, "授权失败，请重试")
			return
		}
		next = verified
	}

	openid, err := h.oauth.ExchangeCode(r.Context(), code)
	switch {
	case errors.Is(err, wechat.ErrPlatform):
		log.Warn().Err(err).Msg("OAuth code rejected by platform")
		respondText(w, http.StatusBadRequest, "获取用户信息失败")
		return
	case err != nil:
		log.Error().Err(err).Msg("OAuth code exchange failed")
		respondText(w, http.StatusInternalServerError, "授权失败，请稍后再试")
		return
	case openid == "":
		respondText(w, http.StatusBadRequest, "获取用户信息失败")
		return
	}

	if _, err := h.sessions.CreateSession(r.Context(), w, r, openid); err != nil {
		log.Error().Err(err).Msg("Failed to create web session")
		respondText(w, http.StatusInternalServerError, "授权失败，请稍后再试")
		return
	}
	h.audit.Login(r, openid)
	log.Info().Str("openid", openid).Msg("Web session opened")
	redirect(w, r, next)
}

// Logout destroys the session and returns to the catalog.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if s := auth.GetSession(r.Context()); s != nil {
		h.audit.Logout(r, s.OpenID)
	}
	if err := h.sessions.DestroySession(r.Context(), w, r); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Failed to delete session on logout")
	}
	redirect(w, r, "/")
}
