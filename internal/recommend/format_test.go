// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package recommend

import (
	"strings"
	"testing"

	"github.com/tomtom215/readmark/internal/models"
)

func TestFormatBooks_Empty(t *testing.T) {
	if got := FormatBooks(nil); got != EmptyReply {
		t.Errorf("FormatBooks(nil) = %q", got)
	}
}

func TestFormatBooks(t *testing.T) {
	got := FormatBooks([]models.Book{
		{Title: "活着", Author: "余华", CallNo: "I247.57/1", Publisher: "作家出版社", Year: "2012"},
		{CallNo: "TP312/9", Summary: strings.Repeat("字", 120)},
	})

	want := "\n" +
		"1. 《活着》\n" +
		" 👤 作者: 余华\n" +
		" 🏷️ 索书号: I247.57/1\n" +
		" 🏢 出版社: 作家出版社\n" +
		" 📅 出版年: 2012\n" +
		"\n\n" +
		"2. 《未知书名》\n" +
		" 👤 作者: 未知作者\n" +
		" 🏷️ 索书号: TP312/9\n" +
		" 🏢 出版社: 未知出版社\n" +
		" 📖 简介: " + strings.Repeat("字", 100) + "...\n" +
		"\n\n" +
		footer

	if got != want {
		t.Errorf("FormatBooks() =\n%s\nwant\n%s", got, want)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := truncateRunes("短", 100); got != "短" {
		t.Errorf("truncateRunes(short) = %q", got)
	}
	if got := truncateRunes(strings.Repeat("a", 101), 100); got != strings.Repeat("a", 100)+"..." {
		t.Errorf("truncateRunes(long) = %q", got)
	}
}
