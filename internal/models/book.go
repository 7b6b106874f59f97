// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package models

import "time"

// Placeholders written to recommendation history when a catalog field is empty.
const (
	UnknownTitle     = "未知书名"
	UnknownAuthor    = "未知作者"
	UnknownPublisher = "未知出版社"
)

// Book is a catalog entry. Catalog rows are reference data loaded from the
// library's export and never edited by readers.
type Book struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	CallNo    string `json:"call_no"`
	ISBN      string `json:"isbn"`
	Summary   string `json:"summary"`
	Year      string `json:"year"`
}

// LoanItem is one entry of a patron's loan history as returned by the
// library API. It is never persisted.
type LoanItem struct {
	CallNo   string `json:"callNo"`
	ReaderID string `json:"readerId"`
}

// RecommendationRecord is a persisted recommendation. ReaderID holds the
// patron card number, not the readers table id, so history survives an
// unbind followed by a rebind of the same card.
type RecommendationRecord struct {
	ID            int64     `json:"id"`
	ReaderID      string    `json:"reader_id"`
	CallNo        string    `json:"call_no"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	Publisher     string    `json:"publisher"`
	ISBN          string    `json:"isbn"`
	RecommendedAt time.Time `json:"recommended_at"`
}

// NewRecommendationRecord copies the book fields, substituting placeholders
// for missing title, author and publisher.
func NewRecommendationRecord(readerID string, b *Book, at time.Time) RecommendationRecord {
	return RecommendationRecord{
		ReaderID:      readerID,
		CallNo:        b.CallNo,
		Title:         orDefault(b.Title, UnknownTitle),
		Author:        orDefault(b.Author, UnknownAuthor),
		Publisher:     orDefault(b.Publisher, UnknownPublisher),
		ISBN:          b.ISBN,
		RecommendedAt: at,
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
