// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package models

import (
	"testing"
	"time"
)

func TestReaderType(t *testing.T) {
	tests := []struct {
		in    ReaderType
		valid bool
		label string
	}{
		{ReaderTypeCard, true, "证件号"},
		{ReaderTypeBarcode, true, "条码号"},
		{"2", false, "条码号"},
		{"", false, "条码号"},
	}
	for _, tt := range tests {
		if got := tt.in.Valid(); got != tt.valid {
			t.Errorf("ReaderType(%q).Valid() = %v, want %v", tt.in, got, tt.valid)
		}
		if got := tt.in.Label(); got != tt.label {
			t.Errorf("ReaderType(%q).Label() = %q, want %q", tt.in, got, tt.label)
		}
	}
}

func TestNewRecommendationRecord_Placeholders(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	rec := NewRecommendationRecord("A123456789", &Book{CallNo: "TP312/1"}, at)

	if rec.Title != UnknownTitle || rec.Author != UnknownAuthor || rec.Publisher != UnknownPublisher {
		t.Errorf("placeholders not applied: %+v", rec)
	}
	if rec.ISBN != "" {
		t.Errorf("ISBN = %q, want empty", rec.ISBN)
	}
	if !rec.RecommendedAt.Equal(at) {
		t.Errorf("RecommendedAt = %v, want %v", rec.RecommendedAt, at)
	}
}

func TestDisplayNames(t *testing.T) {
	r := &Reader{ReaderCard: "A123456789"}
	if r.DisplayName() != "A123456789" {
		t.Errorf("DisplayName() = %q", r.DisplayName())
	}
	r.Nickname = "书虫"
	if r.DisplayName() != "书虫" {
		t.Errorf("DisplayName() = %q", r.DisplayName())
	}

	v := &ReflectionView{}
	if v.AuthorName() != "已注销读者" {
		t.Errorf("AuthorName() = %q", v.AuthorName())
	}
}
