// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/models"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// Page templates, each rendered inside layout.html.tmpl.
const (
	pageIndex          = "index.html.tmpl"
	pageBookDetail     = "book_detail.html.tmpl"
	pageReflections    = "reflections.html.tmpl"
	pageMyPage         = "my_page.html.tmpl"
	pageEditReflection = "edit_reflection.html.tmpl"
	pageEditProfile    = "edit_profile.html.tmpl"
)

var pageNames = []string{
	pageIndex, pageBookDetail, pageReflections, pageMyPage, pageEditReflection, pageEditProfile,
}

var templateFuncs = template.FuncMap{
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	},
	"add": func(a, b int) int { return a + b },
	"sub": func(a, b int) int { return a - b },
}

type pageRenderer struct {
	pages map[string]*template.Template
}

func newPageRenderer() (*pageRenderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html.tmpl", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &pageRenderer{pages: pages}, nil
}

// render executes into a buffer first so a template error never leaves a
// half-written page behind a 200.
func (p *pageRenderer) render(w http.ResponseWriter, r *http.Request, name string, data interface{}) {
	t, ok := p.pages[name]
	if !ok {
		respondText(w, http.StatusInternalServerError, "页面不存在")
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Str("template", name).Msg("Failed to execute template")
		respondText(w, http.StatusInternalServerError, "页面渲染失败")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	if _, err := buf.WriteTo(w); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("Failed to write page")
	}
}

// staticHandler serves the embedded assets under /static/.
func staticHandler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // embedded at compile time
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

// basePage is shared by every page.
type basePage struct {
	Title       string
	Reader      *models.Reader
	CanModerate bool
}
