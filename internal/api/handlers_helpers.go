// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/readmark/internal/auth"
	"github.com/tomtom215/readmark/internal/authz"
	"github.com/tomtom215/readmark/internal/database"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/models"
)

// Plain-text bodies shown inside the in-app browser.
const (
	textOpenFromMenu  = "请从微信公众号菜单访问此页面以完成授权。"
	textNotBound      = "您尚未绑定读者证，请在公众号对话框中发送【绑定】进行操作。"
	textDatabaseError = "数据库连接失败"
	textQueryError    = "查询信息时发生错误，请稍后重试。"
	textForbidden     = "无权限操作"
	textNotOwned      = "无权限操作或该感悟不存在"
	textBadRequest    = "缺少参数"
)

// pagination windows the page numbers around the current page.
type pagination struct {
	Page       int
	TotalPages int
	StartPage  int
	EndPage    int
	Query      string // carried into page links
}

func newPagination(page, total, perPage int) pagination {
	totalPages := (total + perPage - 1) / perPage
	return pagination{
		Page:       page,
		TotalPages: totalPages,
		StartPage:  max(1, page-3),
		EndPage:    min(totalPages, page+3),
	}
}

// Pages lists StartPage..EndPage for the template.
func (p pagination) Pages() []int {
	if p.EndPage < p.StartPage {
		return nil
	}
	out := make([]int, 0, p.EndPage-p.StartPage+1)
	for i := p.StartPage; i <= p.EndPage; i++ {
		out = append(out, i)
	}
	return out
}

// pageParam reads ?page=, treating anything below 1 or unparsable as 1.
func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func formInt64(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(r.FormValue(name), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// currentReader returns the bound reader of the request's session, or nil
// when there is no session or the follower is not bound.
func (h *Handler) currentReader(r *http.Request) (*models.Reader, error) {
	session := auth.GetSession(r.Context())
	if session == nil {
		return nil, nil
	}
	reader, err := h.db.GetReaderByOpenID(r.Context(), session.OpenID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	return reader, err
}

// requireReader writes 403 without a session and 404 for an unbound
// follower. It returns false when a response has been written.
func (h *Handler) requireReader(w http.ResponseWriter, r *http.Request) (*models.Reader, bool) {
	session := auth.GetSession(r.Context())
	if session == nil {
		respondText(w, http.StatusForbidden, textOpenFromMenu)
		return nil, false
	}
	reader, err := h.db.GetReaderByOpenID(r.Context(), session.OpenID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		respondText(w, http.StatusNotFound, textNotBound)
		return nil, false
	case err != nil:
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to look up session reader")
		respondText(w, http.StatusInternalServerError, textDatabaseError)
		return nil, false
	}
	return reader, true
}

func (h *Handler) canModerate(reader *models.Reader) bool {
	return reader != nil && h.authz.Can(reader, authz.ObjReflections, authz.ActModerate)
}

func respondText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		logging.Error().Err(err).Msg("Failed to write text response")
	}
}

// respondJSON sends a JSON response with proper headers.
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

func redirect(w http.ResponseWriter, r *http.Request, target string) {
	http.Redirect(w, r, target, http.StatusFound)
}

// backTo returns the Referer when it points at this site, otherwise fallback.
func backTo(r *http.Request, fallback string) string {
	ref := r.Referer()
	if ref == "" {
		return fallback
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return fallback
	}
	target := u.EscapedPath()
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	if target == "" {
		return fallback
	}
	return auth.SafeNext(target)
}
