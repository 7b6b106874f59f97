// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/readmark/internal/audit"
	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/models"
)

func TestPostReflection(t *testing.T) {
	s := newTestServer(t)
	book := itoa(s.santiID)

	tests := []struct {
		name     string
		form     url.Values
		wantCode int
		wantBody string
	}{
		{
			name:     "missing content",
			form:     url.Values{"book_id": {book}, "reader_card": {"A001"}},
			wantCode: http.StatusBadRequest,
			wantBody: textBadRequest,
		},
		{
			name:     "missing card",
			form:     url.Values{"book_id": {book}, "content": {"好书"}},
			wantCode: http.StatusBadRequest,
			wantBody: textBadRequest,
		},
		{
			name:     "content too long",
			form:     url.Values{"book_id": {book}, "reader_card": {"A001"}, "content": {strings.Repeat("读", 2001)}},
			wantCode: http.StatusBadRequest,
			wantBody: contentTooLongText,
		},
		{
			name:     "unknown card",
			form:     url.Values{"book_id": {book}, "reader_card": {"Z999"}, "content": {"好书"}},
			wantCode: http.StatusBadRequest,
			wantBody: "读者证号无效",
		},
		{
			name:     "unknown book",
			form:     url.Values{"book_id": {"9999"}, "reader_card": {"A001"}, "content": {"好书"}},
			wantCode: http.StatusNotFound,
			wantBody: "书籍不存在",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.post("/post_reflection", tt.form, nil)
			assertStatus(t, rec, tt.wantCode)
			assertBodyContains(t, rec, tt.wantBody)
		})
	}

	rec := s.post("/post_reflection", url.Values{
		"book_id":     {book},
		"reader_card": {"A001"},
		"content":     {"  给岁月以文明  "},
	}, nil)
	assertRedirect(t, rec, "/book/"+book)

	views, err := s.db.ListBookReflections(context.Background(), s.santiID)
	if err != nil {
		t.Fatalf("ListBookReflections() error = %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("book has %d reflections, want 2", len(views))
	}
	found := false
	for _, v := range views {
		if v.Content == "给岁月以文明" && v.ReaderID == s.alice.ID {
			found = true
		}
	}
	if !found {
		t.Errorf("trimmed reflection by alice not stored: %+v", views)
	}
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("invalid JSON %q: %v", rec.Body.String(), err)
	}
}

func TestLike_Idempotent(t *testing.T) {
	s := newTestServer(t)
	form := url.Values{"reflection_id": {itoa(s.bobReflection)}, "reader_card": {"A001"}}

	for i := 0; i < 2; i++ {
		rec := s.post("/like", form, nil)
		assertStatus(t, rec, http.StatusOK)
		var resp map[string]int
		decodeJSON(t, rec, &resp)
		if resp["likes"] != 1 {
			t.Errorf("attempt %d: likes = %d, want 1", i+1, resp["likes"])
		}
	}

	rec := s.post("/like", url.Values{"reflection_id": {itoa(s.bobReflection)}, "reader_card": {"Z999"}}, nil)
	assertStatus(t, rec, http.StatusBadRequest)

	rec = s.post("/like", url.Values{"reflection_id": {"9999"}, "reader_card": {"A001"}}, nil)
	assertStatus(t, rec, http.StatusNotFound)

	rec = s.post("/like", url.Values{}, nil)
	assertStatus(t, rec, http.StatusBadRequest)
}

func TestToggleLike(t *testing.T) {
	s := newTestServer(t)
	alice := s.sessionFor(s.alice.OpenID)
	path := "/toggle_like/" + itoa(s.bobReflection)

	var resp toggleLikeResponse
	rec := s.post(path, nil, alice)
	assertStatus(t, rec, http.StatusOK)
	decodeJSON(t, rec, &resp)
	if !resp.Success || !resp.Liked || resp.Likes != 1 {
		t.Errorf("first toggle = %+v, want liked with 1 like", resp)
	}

	resp = toggleLikeResponse{}
	rec = s.post(path, nil, alice)
	assertStatus(t, rec, http.StatusOK)
	decodeJSON(t, rec, &resp)
	if !resp.Success || resp.Liked || resp.Likes != 0 {
		t.Errorf("second toggle = %+v, want unliked with 0 likes", resp)
	}

	rec = s.post("/toggle_like/9999", nil, alice)
	assertStatus(t, rec, http.StatusNotFound)
}

func TestFeed(t *testing.T) {
	s := newTestServer(t)
	alice := s.sessionFor(s.alice.OpenID)

	rec := s.post("/reflections", url.Values{"book_title": {""}, "content": {"x"}}, alice)
	assertStatus(t, rec, http.StatusBadRequest)
	assertBodyContains(t, rec, emptyFeedPostText)

	rec = s.post("/reflections", url.Values{"book_title": {"局外人"}, "content": {"荒诞与清醒"}}, alice)
	assertRedirect(t, rec, "/reflections")

	rec = s.get("/reflections", alice)
	assertStatus(t, rec, http.StatusOK)
	assertBodyContains(t, rec, "荒诞与清醒")
	assertBodyContains(t, rec, "局外人")
	assertBodyContains(t, rec, "黑暗森林让人脊背发凉")
}

func TestModerateDelete(t *testing.T) {
	s := newTestServer(t)
	path := "/reflection/delete/" + itoa(s.bobReflection)
	alice := s.sessionFor(s.alice.OpenID)

	rec := s.post(path, nil, alice)
	assertStatus(t, rec, http.StatusForbidden)
	assertBodyContains(t, rec, textForbidden)

	if err := s.db.SetAdmin(context.Background(), s.alice.OpenID, true); err != nil {
		t.Fatalf("SetAdmin() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Referer", "http://example.com/book/"+itoa(s.santiID))
	req.AddCookie(alice)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assertRedirect(t, w, "/book/"+itoa(s.santiID))

	v, err := s.db.GetReflection(context.Background(), s.bobReflection)
	if err != nil {
		t.Fatalf("GetReflection() error = %v", err)
	}
	if v.Status != models.StatusHidden {
		t.Errorf("status = %d, want hidden", v.Status)
	}

	rec = s.get("/book/"+itoa(s.santiID), nil)
	if strings.Contains(rec.Body.String(), "黑暗森林让人脊背发凉") {
		t.Error("hidden reflection still shown on book page")
	}
}

func TestModerateDelete_Audited(t *testing.T) {
	store := audit.NewMemoryStore(100)
	trail := audit.NewLogger(store, &config.AuditConfig{Enabled: true, BufferSize: 16})
	s := newTestServer(t, func(d *HandlerDeps, _ *ChiMiddlewareConfig) { d.Audit = trail })
	path := "/reflection/delete/" + itoa(s.bobReflection)
	alice := s.sessionFor(s.alice.OpenID)

	assertStatus(t, s.post(path, nil, alice), http.StatusForbidden)
	if err := s.db.SetAdmin(context.Background(), s.alice.OpenID, true); err != nil {
		t.Fatalf("SetAdmin() error = %v", err)
	}
	assertRedirect(t, s.post(path, nil, alice), "/")
	_ = trail.Close()

	events, _ := store.Query(context.Background(), audit.QueryFilter{})
	if len(events) != 2 {
		t.Fatalf("recorded %d events, want 2", len(events))
	}
	if events[0].Type != audit.EventTypeReflectionModerated || events[1].Type != audit.EventTypeModerationDenied {
		t.Errorf("event types = %s, %s", events[0].Type, events[1].Type)
	}
	for _, e := range events {
		if e.ActorID != s.alice.OpenID || e.TargetID != itoa(s.bobReflection) {
			t.Errorf("event %s actor/target = %s/%s", e.Type, e.ActorID, e.TargetID)
		}
	}
}

func TestOwnReflections(t *testing.T) {
	s := newTestServer(t)
	alice := s.sessionFor(s.alice.OpenID)
	bob := s.sessionFor(s.bob.OpenID)
	own := itoa(s.bobReflection)

	t.Run("others cannot edit or delete", func(t *testing.T) {
		assertStatus(t, s.get("/my_reflection/edit/"+own, alice), http.StatusForbidden)
		assertStatus(t, s.post("/my_reflection/edit/"+own, url.Values{"content": {"篡改"}}, alice), http.StatusForbidden)
		rec := s.post("/my_reflection/delete/"+own, nil, alice)
		assertStatus(t, rec, http.StatusForbidden)
		assertBodyContains(t, rec, textNotOwned)
	})

	t.Run("owner edits", func(t *testing.T) {
		rec := s.get("/my_reflection/edit/"+own, bob)
		assertStatus(t, rec, http.StatusOK)
		assertBodyContains(t, rec, "黑暗森林让人脊背发凉")

		rec = s.post("/my_reflection/edit/"+own, url.Values{"content": {"   "}}, bob)
		assertStatus(t, rec, http.StatusBadRequest)
		assertBodyContains(t, rec, emptyContentText)

		rec = s.post("/my_reflection/edit/"+own, url.Values{"content": {strings.Repeat("字", 2001)}}, bob)
		assertStatus(t, rec, http.StatusBadRequest)
		assertBodyContains(t, rec, contentTooLongText)

		rec = s.post("/my_reflection/edit/"+own, url.Values{"content": {"重读一遍"}}, bob)
		assertRedirect(t, rec, "/my_page")

		rec = s.get("/my_page", bob)
		assertStatus(t, rec, http.StatusOK)
		assertBodyContains(t, rec, "重读一遍")
	})

	t.Run("owner deletes", func(t *testing.T) {
		rec := s.post("/my_reflection/delete/"+own, nil, bob)
		assertRedirect(t, rec, "/my_page")

		// A hidden reflection can no longer be edited.
		assertStatus(t, s.get("/my_reflection/edit/"+own, bob), http.StatusForbidden)
		assertStatus(t, s.post("/my_reflection/delete/"+own, nil, bob), http.StatusForbidden)
	})
}

func TestEditProfile(t *testing.T) {
	s := newTestServer(t)
	alice := s.sessionFor(s.alice.OpenID)

	tests := []struct {
		name     string
		nickname string
		wantCode int
		wantBody string
	}{
		{"empty", "  ", http.StatusBadRequest, emptyNicknameText},
		{"too long", strings.Repeat("名", 51), http.StatusBadRequest, nicknameTooLongText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.post("/profile/edit", url.Values{"nickname": {tt.nickname}}, alice)
			assertStatus(t, rec, tt.wantCode)
			assertBodyContains(t, rec, tt.wantBody)
		})
	}

	rec := s.post("/profile/edit", url.Values{"nickname": {strings.Repeat("名", 50)}}, alice)
	assertRedirect(t, rec, "/my_page")

	reader, err := s.db.GetReaderByOpenID(context.Background(), s.alice.OpenID)
	if err != nil {
		t.Fatalf("GetReaderByOpenID() error = %v", err)
	}
	if reader.Nickname != strings.Repeat("名", 50) {
		t.Errorf("Nickname = %q", reader.Nickname)
	}
}

func TestPagination(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		page      int
		total     int
		perPage   int
		wantTotal int
		wantPages []int
	}{
		{"empty", 1, 0, 8, 0, nil},
		{"single page", 1, 5, 8, 1, []int{1}},
		{"window at start", 1, 100, 10, 10, []int{1, 2, 3, 4}},
		{"window in middle", 5, 100, 10, 10, []int{2, 3, 4, 5, 6, 7, 8}},
		{"window at end", 10, 100, 10, 10, []int{7, 8, 9, 10}},
		{"partial last page", 2, 9, 8, 2, []int{1, 2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := newPagination(tt.page, tt.total, tt.perPage)
			if p.TotalPages != tt.wantTotal {
				t.Errorf("TotalPages = %d, want %d", p.TotalPages, tt.wantTotal)
			}
			if got := p.Pages(); !reflect.DeepEqual(got, tt.wantPages) {
				t.Errorf("Pages() = %v, want %v", got, tt.wantPages)
			}
		})
	}
}

func TestBackTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		referer string
		want    string
	}{
		{"no referer", "", "/"},
		{"same host", "http://example.com/book/3", "/book/3"},
		{"same host with query", "http://example.com/reflections?page=2", "/reflections?page=2"},
		{"relative", "/my_page", "/my_page"},
		{"other host", "https://evil.example/phish", "/"},
		{"bare host", "http://example.com", "/"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodPost, "http://example.com/reflection/delete/1", nil)
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			if got := backTo(req, "/"); got != tt.want {
				t.Errorf("backTo() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStaticAssets(t *testing.T) {
	s := newTestServer(t)

	rec := s.get("/static/js/like.js", nil)
	assertStatus(t, rec, http.StatusOK)
	assertBodyContains(t, rec, "toggle_like")
}
