// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package recommend

import (
	"fmt"
	"strings"

	"github.com/tomtom215/readmark/internal/models"
)

const (
	// EmptyReply is sent when a round produced no books.
	EmptyReply = "📭 暂时没有找到合适的推荐，请稍后再试"

	summaryRunes = 100
	footer       = "🔍 在图书馆检索索书号即可找到对应书籍\n🔄 再次发送【推荐】获取更多好书"
)

// FormatBooks renders a batch as a chat message body.
func FormatBooks(books []models.Book) string {
	if len(books) == 0 {
		return EmptyReply
	}

	var b strings.Builder
	b.WriteString("\n")
	for i := range books {
		bk := &books[i]
		fmt.Fprintf(&b, "%d. 《%s》\n", i+1, orDefault(bk.Title, models.UnknownTitle))
		fmt.Fprintf(&b, " 👤 作者: %s\n", orDefault(bk.Author, models.UnknownAuthor))
		fmt.Fprintf(&b, " 🏷️ 索书号: %s\n", bk.CallNo)
		fmt.Fprintf(&b, " 🏢 出版社: %s\n", orDefault(bk.Publisher, models.UnknownPublisher))
		if bk.Year != "" {
			fmt.Fprintf(&b, " 📅 出版年: %s\n", bk.Year)
		}
		if bk.Summary != "" {
			fmt.Fprintf(&b, " 📖 简介: %s\n", truncateRunes(bk.Summary, summaryRunes))
		}
		b.WriteString("\n\n")
	}
	b.WriteString(footer)
	return b.String()
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
