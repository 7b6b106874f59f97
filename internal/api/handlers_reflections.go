// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/tomtom215/readmark/internal/authz"
	"github.com/tomtom215/readmark/internal/database"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/models"
	"github.com/tomtom215/readmark/internal/validation"
)

const reflectionsPerPage = 10

const (
	contentTooLongText  = "感悟内容不能超过2000个字符！"
	emptyContentText    = "感悟内容不能为空！"
	emptyFeedPostText   = "书名和感悟内容都不能为空！"
	postFailedText      = "发布失败，数据库发生错误，请稍后重试。"
	emptyNicknameText   = "昵称不能为空！"
	nicknameTooLongText = "昵称不能超过50个字符！"
)

type reflectionsPage struct {
	basePage
	pagination
	Reflections []models.ReflectionView
}

// Reflections is the feed of every visible reflection.
func (h *Handler) Reflections(w http.ResponseWriter, r *http.Request) {
	reader, ok := h.requireReader(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	page := pageParam(r)

	total, err := h.db.CountVisibleReflections(ctx)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to count reflections")
		respondText(w, http.StatusInternalServerError, textDatabaseError)
		return
	}
	feed, err := h.db.ListReflectionFeed(ctx, reflectionsPerPage, (page-1)*reflectionsPerPage)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to list reflection feed")
		respondText(w, http.StatusInternalServerError, textDatabaseError)
		return
	}

	h.pages.render(w, r, pageReflections, reflectionsPage{
		basePage:    basePage{Title: "感悟广场", Reader: reader, CanModerate: h.canModerate(reader)},
		pagination:  newPagination(page, total, reflectionsPerPage),
		Reflections: feed,
	})
}

// PostFeedReflection publishes a reflection on a free-typed title. The title
// resolves to a catalog book, then to a user book, and otherwise creates one.
func (h *Handler) PostFeedReflection(w http.ResponseWriter, r *http.Request) {
	reader, ok := h.requireReader(w, r)
	if !ok {
		return
	}
	if !h.allowed(w, reader, authz.ObjReflections, authz.ActWrite) {
		return
	}

	form := validation.FeedReflectionForm{
		BookTitle: strings.TrimSpace(r.FormValue("book_title")),
		Content:   strings.TrimSpace(r.FormValue("content")),
	}
	if form.BookTitle == "" || form.Content == "" {
		respondText(w, http.StatusBadRequest, emptyFeedPostText)
		return
	}
	if verr := validation.ValidateStruct(&form); verr != nil {
		respondText(w, http.StatusBadRequest, verr.Error())
		return
	}

	if _, err := h.db.PostReflectionByTitle(r.Context(), reader.ID, form.BookTitle, form.Content); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to post reflection by title")
		respondText(w, http.StatusInternalServerError, postFailedText)
		return
	}
	redirect(w, r, "/reflections")
}

type myPage struct {
	basePage
	Reflections []models.ReflectionView
}

// MyPage lists the reader's own reflections.
func (h *Handler) MyPage(w http.ResponseWriter, r *http.Request) {
	reader, ok := h.requireReader(w, r)
	if !ok {
		return
	}
	own, err := h.db.ListReaderReflections(r.Context(), reader.ID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to list own reflections")
		respondText(w, http.StatusInternalServerError, textQueryError)
		return
	}
	h.pages.render(w, r, pageMyPage, myPage{
		basePage:    basePage{Title: "我的主页", Reader: reader, CanModerate: h.canModerate(reader)},
		Reflections: own,
	})
}

type toggleLikeResponse struct {
	Success bool   `json:"success"`
	Likes   int    `json:"likes"`
	Liked   bool   `json:"liked"`
	Error   string `json:"error,omitempty"`
}

// ToggleLike flips the session reader's like.
func (h *Handler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	reader, ok := h.requireReader(w, r)
	if !ok {
		return
	}
	if !h.authz.Can(reader, authz.ObjLikes, authz.ActToggle) {
		respondJSON(w, http.StatusForbidden, toggleLikeResponse{Error: textForbidden})
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		respondJSON(w, http.StatusNotFound, toggleLikeResponse{Error: "感悟不存在"})
		return
	}

	liked, likes, err := h.db.ToggleLike(r.Context(), id, reader.ID)
	if errors.Is(err, database.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, toggleLikeResponse{Error: "感悟不存在"})
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("reflection_id", id).Msg("Failed to toggle like")
		respondJSON(w, http.StatusInternalServerError, toggleLikeResponse{Error: textDatabaseError})
		return
	}
	respondJSON(w, http.StatusOK, toggleLikeResponse{Success: true, Likes: likes, Liked: liked})
}

// ModerateDelete hides any reflection. Admin only.
func (h *Handler) ModerateDelete(w http.ResponseWriter, r *http.Request) {
	reader, ok := h.requireReader(w, r)
	if !ok {
		return
	}
	id, validID := idParam(r, "id")
	if !h.allowed(w, reader, authz.ObjReflections, authz.ActModerate) {
		h.audit.ModerationDenied(r, reader.OpenID, id)
		return
	}
	if !validID {
		respondText(w, http.StatusNotFound, "感悟不存在")
		return
	}

	err := h.db.HideReflection(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) {
		respondText(w, http.StatusNotFound, "感悟不存在")
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("reflection_id", id).Msg("Failed to hide reflection")
		respondText(w, http.StatusInternalServerError, "删除失败，服务器发生错误")
		return
	}
	h.audit.ReflectionModerated(r, reader.OpenID, id)
	logging.Ctx(r.Context()).Info().Int64("reflection_id", id).Int64("moderator", reader.ID).Msg("Reflection hidden by moderator")
	redirect(w, r, backTo(r, "/"))
}

// DeleteOwn hides one of the reader's own reflections.
func (h *Handler) DeleteOwn(w http.ResponseWriter, r *http.Request) {
	reader, ok := h.requireReader(w, r)
	if !ok {
		return
	}
	if !h.allowed(w, reader, authz.ObjReflections, authz.ActEditOwn) {
		return
	}
	id, ok := idParam(r, "id")
	if !ok {
		respondText(w, http.StatusForbidden, textNotOwned)
		return
	}

	err := h.db.HideOwnReflection(r.Context(), id, reader.ID)
	if errors.Is(err, database.ErrNotFound) {
		respondText(w, http.StatusForbidden, textNotOwned)
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("reflection_id", id).Msg("Failed to hide own reflection")
		respondText(w, http.StatusInternalServerError, "删除失败，服务器发生错误")
		return
	}
	redirect(w, r, "/my_page")
}

type editReflectionPage struct {
	basePage
	Reflection *models.ReflectionView
}

// ownVisibleReflection loads reflection {id} when it is visible and written
// by reader. It writes 403 otherwise.
func (h *Handler) ownVisibleReflection(w http.ResponseWriter, r *http.Request, reader *models.Reader) (*models.ReflectionView, bool) {
	id, ok := idParam(r, "id")
	if !ok {
		respondText(w, http.StatusForbidden, textNotOwned)
		return nil, false
	}
	v, err := h.db.GetReflection(r.Context(), id)
	if errors.Is(err, database.ErrNotFound) || (err == nil && (v.ReaderID != reader.ID || v.Status != models.StatusVisible)) {
		respondText(w, http.StatusForbidden, textNotOwned)
		return nil, false
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("reflection_id", id).Msg("Failed to get reflection")
		respondText(w, http.StatusInternalServerError, "操作失败，服务器发生错误")
		return nil, false
	}
	return v, true
}

// EditOwnForm shows the edit form for one of the reader's reflections.
func (h *Handler) EditOwnForm(w http.ResponseWriter, r *http.Request) {
	reader, ok := h.requireReader(w, r)
	if !ok {
		return
	}
	v, ok := h.ownVisibleReflection(w, r, reader)
	if !ok {
		return
	}
	h.pages.render(w, r, pageEditReflection, editReflectionPage{
		basePage:   basePage{Title: "编辑感悟", Reader: reader, CanModerate: h.canModerate(reader)},
		Reflection: v,
	})
}

// EditOwn saves the edited text.
func (h *Handler) EditOwn(w http.ResponseWriter, r *http.Request) {
	reader, ok := h.requireReader(w, r)
	if !ok {
		return
	}
	if !h.allowed(w, reader, authz.ObjReflections, authz.ActEditOwn) {
		return
	}
	v, ok := h.ownVisibleReflection(w, r, reader)
	if !ok {
		return
	}

	form := validation.EditReflectionForm{Content: strings.TrimSpace(r.FormValue("content"))}
	if form.Content == "" {
		respondText(w, http.StatusBadRequest, emptyContentText)
		return
	}
	if verr := validation.ValidateStruct(&form); verr != nil {
		respondText(w, http.StatusBadRequest, contentTooLongText)
		return
	}

	err := h.db.UpdateOwnReflection(r.Context(), v.ID, reader.ID, form.Content)
	if errors.Is(err, database.ErrNotFound) {
		respondText(w, http.StatusForbidden, textNotOwned)
		return
	}
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Int64("reflection_id", v.ID).Msg("Failed to update reflection")
		respondText(w, http.StatusInternalServerError, "操作失败，服务器发生错误")
		return
	}
	redirect(w, r, "/my_page")
}

type editProfilePage struct {
	basePage
}

// EditProfileForm shows the nickname form.
func (h *Handler) EditProfileForm(w http.ResponseWriter, r *http.Request) {
	reader, ok := h.requireReader(w, r)
	if !ok {
		return
	}
	h.pages.render(w, r, pageEditProfile, editProfilePage{
		basePage: basePage{Title: "编辑资料", Reader: reader, CanModerate: h.canModerate(reader)},
	})
}

// EditProfile saves a nickname of 1 to 50 characters.
func (h *Handler) EditProfile(w http.ResponseWriter, r *http.Request) {
	reader, ok := h.requireReader(w, r)
	if !ok {
		return
	}
	if !h.allowed(w, reader, authz.ObjProfile, authz.ActEdit) {
		return
	}

	form := validation.ProfileForm{Nickname: strings.TrimSpace(r.FormValue("nickname"))}
	if verr := validation.ValidateStruct(&form); verr != nil {
		if form.Nickname == "" {
			respondText(w, http.StatusBadRequest, emptyNicknameText)
		} else {
			respondText(w, http.StatusBadRequest, nicknameTooLongText)
		}
		return
	}

	if err := h.db.UpdateNickname(r.Context(), reader.ID, form.Nickname); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to update nickname")
		respondText(w, http.StatusInternalServerError, "操作失败，服务器发生错误")
		return
	}
	redirect(w, r, "/my_page")
}

// allowed writes 403 when reader lacks the permission.
func (h *Handler) allowed(w http.ResponseWriter, reader *models.Reader, object, action string) bool {
	if !h.authz.Can(reader, object, action) {
		respondText(w, http.StatusForbidden, textForbidden)
		return false
	}
	return true
}
