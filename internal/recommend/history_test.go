// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package recommend

import (
	"testing"

	"github.com/tomtom215/readmark/internal/models"
)

func loans(callNos ...string) []models.LoanItem {
	items := make([]models.LoanItem, len(callNos))
	for i, c := range callNos {
		items[i] = models.LoanItem{CallNo: c, ReaderID: "A123456789"}
	}
	return items
}

func TestSummarize(t *testing.T) {
	s := defaultParser.Summarize(loans("TP312/1", "TP311/2", "H319/3", "", "---"))

	if s.ReaderID != "A123456789" {
		t.Errorf("ReaderID = %q", s.ReaderID)
	}
	if len(s.Seen) != 5 {
		t.Errorf("len(Seen) = %d, want 5", len(s.Seen))
	}
	if s.ClassFreq["T"] != 2 || s.ClassFreq["H"] != 1 || len(s.ClassFreq) != 2 {
		t.Errorf("ClassFreq = %v", s.ClassFreq)
	}
	if s.SubclassFreq[Classification{"T", "TP"}] != 2 {
		t.Errorf("SubclassFreq = %v", s.SubclassFreq)
	}
}

func TestSummarize_AllUnparseable(t *testing.T) {
	s := defaultParser.Summarize(loans("", "...", "//"))
	if len(s.ClassFreq) != 0 || len(s.SubclassFreq) != 0 {
		t.Errorf("expected empty frequencies, got %v %v", s.ClassFreq, s.SubclassFreq)
	}
}

func TestRanked_TieBreak(t *testing.T) {
	s := defaultParser.Summarize(loans(
		"I247/1", "I247/2",
		"TP312/1", "TN91/1",
		"B82/1", "H31/1",
	))
	got := s.Ranked()

	want := []Classification{
		{"I", "I2"},
		{"B", "B8"},
		{"H", "H3"},
		{"T", "TN"},
		{"T", "TP"},
	}
	if len(got) != len(want) {
		t.Fatalf("Ranked() = %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Classification != want[i] {
			t.Errorf("Ranked()[%d] = %+v, want %+v", i, got[i].Classification, want[i])
		}
	}
	if got[0].Count != 2 {
		t.Errorf("top count = %d, want 2", got[0].Count)
	}
}
