// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package recommend

import (
	"sort"

	"github.com/tomtom215/readmark/internal/models"
)

// SubclassCount is one ranked entry of a history summary.
type SubclassCount struct {
	Classification
	Count int
}

// HistorySummary aggregates a loan history.
type HistorySummary struct {
	// ReaderID is the patron id of the first loan item, if any.
	ReaderID     string
	Seen         map[string]struct{}
	ClassFreq    map[string]int
	SubclassFreq map[Classification]int
}

// Summarize folds items into frequency counts. Items whose call number does
// not classify still count as seen.
func (p *Parser) Summarize(items []models.LoanItem) HistorySummary {
	s := HistorySummary{
		Seen:         make(map[string]struct{}, len(items)),
		ClassFreq:    make(map[string]int),
		SubclassFreq: make(map[Classification]int),
	}
	for i, item := range items {
		s.Seen[item.CallNo] = struct{}{}
		if i == 0 {
			s.ReaderID = item.ReaderID
		}

		c := p.Parse(item.CallNo)
		if c.IsZero() {
			continue
		}
		s.ClassFreq[c.Main]++
		s.SubclassFreq[c]++
	}
	return s
}

// Ranked returns the subclasses by descending count. Ties are broken by main
// class, then subclass, both ascending.
func (s HistorySummary) Ranked() []SubclassCount {
	ranked := make([]SubclassCount, 0, len(s.SubclassFreq))
	for c, n := range s.SubclassFreq {
		ranked = append(ranked, SubclassCount{Classification: c, Count: n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Main != b.Main {
			return a.Main < b.Main
		}
		return a.Subclass < b.Subclass
	})
	return ranked
}
