// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package database

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/readmark/internal/models"
)

func TestListAndCountBooks(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	seedBooks(t, db,
		book("Go 语言实战", "William", "TP312/1"),
		book("Python Crash Course", "Eric", "TP311/2"),
		book("明朝那些事儿", "当年明月", "K248/3"),
		book("100% 纯净", "某人", "I247/4"),
		models.Book{Title: "", CallNo: "X1"}, // skipped: no title
	)

	total, err := db.CountBooks(ctx, "")
	if err != nil {
		t.Fatalf("CountBooks() error = %v", err)
	}
	if total != 4 {
		t.Errorf("CountBooks() = %d, want 4", total)
	}

	tests := []struct {
		query string
		want  int
	}{
		{"go", 1},
		{"PYTHON", 1},
		{"明朝", 1},
		{"%", 1},
		{"_", 0},
		{"missing", 0},
	}
	for _, tt := range tests {
		books, err := db.ListBooks(ctx, tt.query, 8, 0)
		if err != nil {
			t.Fatalf("ListBooks(%q) error = %v", tt.query, err)
		}
		if len(books) != tt.want {
			t.Errorf("ListBooks(%q) = %d books, want %d", tt.query, len(books), tt.want)
		}
		n, _ := db.CountBooks(ctx, tt.query)
		if n != tt.want {
			t.Errorf("CountBooks(%q) = %d, want %d", tt.query, n, tt.want)
		}
	}

	page, err := db.ListBooks(ctx, "", 2, 2)
	if err != nil {
		t.Fatalf("ListBooks() page error = %v", err)
	}
	if len(page) != 2 || page[0].Title != "明朝那些事儿" {
		t.Errorf("second page = %+v", page)
	}
}

func TestGetBookAndRelated(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	seedBooks(t, db,
		book("A", "鲁迅", "I210/1"),
		book("B", "鲁迅", "I210/2"),
		book("C", "鲁迅", "I210/3"),
		book("D", "老舍", "I246/1"),
	)
	books, _ := db.ListBooks(ctx, "", 10, 0)
	first := books[0]

	got, err := db.GetBook(ctx, first.ID)
	if err != nil {
		t.Fatalf("GetBook() error = %v", err)
	}
	if got.Title != "A" {
		t.Errorf("GetBook() title = %q", got.Title)
	}
	if _, err := db.GetBook(ctx, 9999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetBook(9999) error = %v, want ErrNotFound", err)
	}

	related, err := db.RelatedBooks(ctx, got, 5)
	if err != nil {
		t.Fatalf("RelatedBooks() error = %v", err)
	}
	if len(related) != 2 {
		t.Errorf("RelatedBooks() = %d, want 2", len(related))
	}
	for _, b := range related {
		if b.ID == got.ID {
			t.Error("RelatedBooks() includes the book itself")
		}
	}

	if _, err := db.FindBookByTitle(ctx, "D"); err != nil {
		t.Errorf("FindBookByTitle(D) error = %v", err)
	}
	if _, err := db.FindBookByTitle(ctx, "d"); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindBookByTitle is not exact: %v", err)
	}
}

func TestBooksByCallNoPrefix(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	seedBooks(t, db,
		book("t1", "", "TP312/1"),
		book("t2", "", "TP311/2"),
		book("t3", "", "TN91/3"),
		book("h1", "", "H319.9/4"),
	)

	books, err := db.BooksByCallNoPrefix(ctx, "TP", []string{"TP312/1"}, 10)
	if err != nil {
		t.Fatalf("BooksByCallNoPrefix() error = %v", err)
	}
	if len(books) != 1 || books[0].CallNo != "TP311/2" {
		t.Errorf("BooksByCallNoPrefix(TP) = %+v", books)
	}

	books, err = db.BooksByCallNoPrefix(ctx, "T", nil, 2)
	if err != nil {
		t.Fatalf("BooksByCallNoPrefix() error = %v", err)
	}
	if len(books) != 2 {
		t.Errorf("limit not applied: %d", len(books))
	}
	for _, b := range books {
		if !strings.HasPrefix(b.CallNo, "T") {
			t.Errorf("unexpected call number %s", b.CallNo)
		}
	}
}

func TestRandomBooksExcludes(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	seedBooks(t, db, makeBooks("I", 6)...)
	all, _ := db.ListBooks(ctx, "", 10, 0)
	exclude := []string{all[0].CallNo, all[1].CallNo, all[2].CallNo}

	for i := 0; i < 5; i++ {
		books, err := db.RandomBooks(ctx, exclude, 10)
		if err != nil {
			t.Fatalf("RandomBooks() error = %v", err)
		}
		if len(books) != 3 {
			t.Fatalf("RandomBooks() = %d, want 3", len(books))
		}
		for _, b := range books {
			for _, ex := range exclude {
				if b.CallNo == ex {
					t.Errorf("RandomBooks() returned excluded %s", ex)
				}
			}
		}
	}

	if books, _ := db.RandomBooks(ctx, nil, 0); len(books) != 0 {
		t.Errorf("RandomBooks(limit 0) = %d", len(books))
	}
}
