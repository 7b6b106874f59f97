// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/tomtom215/readmark/internal/database"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/models"
	"github.com/tomtom215/readmark/internal/validation"
)

const (
	booksPerPage      = 8
	relatedBooksLimit = 5
)

type indexPage struct {
	basePage
	pagination
	Books []models.Book
}

// Index is the catalog browse page, optionally filtered by a title substring.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reader, err := h.currentReader(r)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to look up session reader")
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	page := pageParam(r)

	total, err := h.db.CountBooks(ctx, query)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to count books")
		respondText(w, http.StatusInternalServerError, textDatabaseError)
		return
	}
	books, err := h.db.ListBooks(ctx, query, booksPerPage, (page-1)*booksPerPage)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to list books")
		respondText(w, http.StatusInternalServerError, textDatabaseError)
		return
	}

	pager := newPagination(page, total, booksPerPage)
	pager.Query = query
	h.pages.render(w, r, pageIndex, indexPage{
		basePage:   basePage{Title: "图书首页", Reader: reader, CanModerate: h.canModerate(reader)},
		pagination: pager,
		Books:      books,
	})
}

type bookDetailPage struct {
	basePage
	Book        *models.Book
	Related     []models.Book
	Reflections []models.ReflectionView
}

// BookDetail shows one book, other titles by the same author and the visible
// reflections on it.
func (h *Handler) BookDetail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := idParam(r, "id")
	if !ok {
		respondText(w, http.StatusNotFound, "书籍不存在")
		return
	}
	reader, err := h.currentReader(r)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to look up session reader")
	}

	book, err := h.db.GetBook(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		respondText(w, http.StatusNotFound, "书籍不存在")
		return
	}
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("book_id", id).Msg("Failed to get book")
		respondText(w, http.StatusInternalServerError, textDatabaseError)
		return
	}

	related, err := h.db.RelatedBooks(ctx, book, relatedBooksLimit)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Int64("book_id", id).Msg("Failed to list related books")
		related = nil
	}
	reflections, err := h.db.ListBookReflections(ctx, id)
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("book_id", id).Msg("Failed to list book reflections")
		respondText(w, http.StatusInternalServerError, textDatabaseError)
		return
	}

	h.pages.render(w, r, pageBookDetail, bookDetailPage{
		basePage:    basePage{Title: book.Title, Reader: reader, CanModerate: h.canModerate(reader)},
		Book:        book,
		Related:     related,
		Reflections: reflections,
	})
}

// PostReflection attaches a reflection to a catalog book on behalf of the
// reader identified by card number.
func (h *Handler) PostReflection(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := validation.BookReflectionForm{
		BookID:     formInt64(r, "book_id"),
		ReaderCard: strings.TrimSpace(r.FormValue("reader_card")),
		Content:    strings.TrimSpace(r.FormValue("content")),
	}
	if verr := validation.ValidateStruct(&form); verr != nil {
		if verr.HasField("Content") && form.Content != "" {
			respondText(w, http.StatusBadRequest, contentTooLongText)
			return
		}
		respondText(w, http.StatusBadRequest, textBadRequest)
		return
	}

	reader, err := h.db.GetReaderByCard(ctx, form.ReaderCard)
	if errors.Is(err, database.ErrNotFound) {
		respondText(w, http.StatusBadRequest, "读者证号无效")
		return
	}
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to look up reader by card")
		respondText(w, http.StatusInternalServerError, textDatabaseError)
		return
	}
	if _, err := h.db.GetBook(ctx, form.BookID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondText(w, http.StatusNotFound, "书籍不存在")
			return
		}
		logging.Ctx(ctx).Error().Err(err).Int64("book_id", form.BookID).Msg("Failed to get book")
		respondText(w, http.StatusInternalServerError, textDatabaseError)
		return
	}

	bookID := form.BookID
	if _, err := h.db.CreateReflection(ctx, &models.Reflection{
		BookID:   &bookID,
		ReaderID: reader.ID,
		Content:  form.Content,
	}); err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("book_id", bookID).Msg("Failed to create reflection")
		respondText(w, http.StatusInternalServerError, postFailedText)
		return
	}
	redirect(w, r, "/book/"+strconv.FormatInt(bookID, 10))
}

// Like records a like for the reader identified by card number. Liking twice
// keeps a single like.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	form := validation.LikeForm{
		ReflectionID: formInt64(r, "reflection_id"),
		ReaderCard:   strings.TrimSpace(r.FormValue("reader_card")),
	}
	if verr := validation.ValidateStruct(&form); verr != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": textBadRequest})
		return
	}

	reader, err := h.db.GetReaderByCard(ctx, form.ReaderCard)
	if errors.Is(err, database.ErrNotFound) {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "读者不存在"})
		return
	}
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Msg("Failed to look up reader by card")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": textDatabaseError})
		return
	}

	likes, err := h.db.AddLike(ctx, form.ReflectionID, reader.ID)
	if errors.Is(err, database.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, map[string]string{"error": "感悟不存在"})
		return
	}
	if err != nil {
		logging.Ctx(ctx).Error().Err(err).Int64("reflection_id", form.ReflectionID).Msg("Failed to add like")
		respondJSON(w, http.StatusInternalServerError, map[string]string{"error": textDatabaseError})
		return
	}
	respondJSON(w, http.StatusOK, map[string]int{"likes": likes})
}
