// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package models

import "time"

// Reflection visibility. Deleted reflections are kept with StatusHidden.
const (
	StatusHidden  = 0
	StatusVisible = 1
)

// Reflection is a short note a reader writes about a book. Exactly one of
// BookID and UserBookID is set.
type Reflection struct {
	ID         int64     `json:"id"`
	BookID     *int64    `json:"book_id,omitempty"`
	UserBookID *int64    `json:"user_book_id,omitempty"`
	ReaderID   int64     `json:"reader_id"`
	Content    string    `json:"content"`
	Status     int       `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReflectionView is a reflection joined with what the pages display next to it.
type ReflectionView struct {
	Reflection
	BookTitle  string     `json:"book_title"`
	ReaderCard string     `json:"reader_card"`
	ReaderType ReaderType `json:"reader_type"`
	Nickname   string     `json:"nickname"`
	Likes      int        `json:"likes"`
}

// AuthorName is the nickname, falling back to the card number, falling back
// to a placeholder once the author has unbound.
func (v ReflectionView) AuthorName() string {
	switch {
	case v.Nickname != "":
		return v.Nickname
	case v.ReaderCard != "":
		return v.ReaderCard
	default:
		return "已注销读者"
	}
}

// UserBook is a title a reader wrote about that is not in the catalog.
type UserBook struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	ReaderID  int64     `json:"reader_id"`
	CreatedAt time.Time `json:"created_at"`
}
