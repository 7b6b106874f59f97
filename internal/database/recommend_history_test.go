// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package database

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tomtom215/readmark/internal/models"
)

func TestSaveRecommendations_PrunesToRetention(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()
	fixedClock(db, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	const reader = "A123456789"
	for batch := 0; batch < 6; batch++ {
		books := make([]models.Book, 4)
		for i := range books {
			books[i] = book(fmt.Sprintf("b%d-%d", batch, i), "", fmt.Sprintf("I%d/%d", batch, i))
		}
		if err := db.SaveRecommendations(ctx, reader, books, 20); err != nil {
			t.Fatalf("SaveRecommendations(batch %d) error = %v", batch, err)
		}
	}
	// Another reader's history is untouched by pruning.
	if err := db.SaveRecommendations(ctx, "B000000000", []models.Book{book("x", "", "X1/1")}, 20); err != nil {
		t.Fatalf("SaveRecommendations(other) error = %v", err)
	}

	records, err := db.ListRecommendations(ctx, reader)
	if err != nil {
		t.Fatalf("ListRecommendations() error = %v", err)
	}
	if len(records) != 20 {
		t.Fatalf("history holds %d rows, want 20", len(records))
	}
	// Batch 0 is the only one dropped.
	for _, r := range records {
		if r.CallNo[:2] == "I0" {
			t.Errorf("oldest batch survived pruning: %s", r.CallNo)
		}
	}
	if records[0].CallNo[:2] != "I5" {
		t.Errorf("newest record = %s, want batch 5", records[0].CallNo)
	}

	other, _ := db.ListRecommendations(ctx, "B000000000")
	if len(other) != 1 {
		t.Errorf("other reader history = %d, want 1", len(other))
	}

	callNos, err := db.RecommendedCallNumbers(ctx, reader)
	if err != nil {
		t.Fatalf("RecommendedCallNumbers() error = %v", err)
	}
	if len(callNos) != 20 {
		t.Errorf("RecommendedCallNumbers() = %d, want 20", len(callNos))
	}
}

func TestSaveRecommendations_Placeholders(t *testing.T) {
	db := setupTestDB(t)
	defer db.Close()
	ctx := context.Background()

	if err := db.SaveRecommendations(ctx, "A1", []models.Book{{CallNo: "TP1/1"}}, 20); err != nil {
		t.Fatalf("SaveRecommendations() error = %v", err)
	}
	records, _ := db.ListRecommendations(ctx, "A1")
	if len(records) != 1 {
		t.Fatalf("records = %d", len(records))
	}
	r := records[0]
	if r.Title != models.UnknownTitle || r.Author != models.UnknownAuthor || r.Publisher != models.UnknownPublisher {
		t.Errorf("placeholders not stored: %+v", r)
	}

	if err := db.SaveRecommendations(ctx, "A1", nil, 20); err != nil {
		t.Errorf("SaveRecommendations(nil) error = %v", err)
	}
}
