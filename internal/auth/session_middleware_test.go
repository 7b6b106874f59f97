// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/readmark/internal/config"
)

func TestSessionMiddleware_CreateAndAuthenticate(t *testing.T) {
	store := NewMemorySessionStore()
	m := NewSessionMiddleware(store, nil)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/wechat_redirect", nil)
	session, err := m.CreateSession(context.Background(), rec, req, "oA")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 {
		t.Fatalf("cookies = %d, want 1", len(cookies))
	}
	c := cookies[0]
	if c.Name != SessionCookieName || c.Value != session.ID {
		t.Errorf("cookie = %s=%s", c.Name, c.Value)
	}
	if !c.HttpOnly || c.SameSite != http.SameSiteLaxMode {
		t.Errorf("cookie flags HttpOnly=%v SameSite=%v", c.HttpOnly, c.SameSite)
	}

	var seen *Session
	h := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetSession(r.Context())
	}))

	req = httptest.NewRequest(http.MethodGet, "/my_page", nil)
	req.AddCookie(c)
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen == nil || seen.OpenID != "oA" {
		t.Fatalf("session on context = %+v", seen)
	}

	// Unknown cookie continues anonymously.
	seen = nil
	req = httptest.NewRequest(http.MethodGet, "/my_page", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "bogus"})
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != nil {
		t.Errorf("bogus cookie produced session %+v", seen)
	}
}

func TestSessionMiddleware_CreateReplacesOldSession(t *testing.T) {
	store := NewMemorySessionStore()
	m := NewSessionMiddleware(store, nil)

	first, _ := m.CreateSession(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), "oA")

	req := httptest.NewRequest(http.MethodGet, "/wechat_redirect", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: first.ID})
	second, err := m.CreateSession(context.Background(), httptest.NewRecorder(), req, "oA")
	if err != nil {
		t.Fatalf("CreateSession() error: %v", err)
	}
	if second.ID == first.ID {
		t.Error("login reused the previous session ID")
	}
	if store.Count() != 1 {
		t.Errorf("Count() = %d, want 1", store.Count())
	}
}

func TestSessionMiddleware_Sliding(t *testing.T) {
	store := NewMemorySessionStore()
	cfg := DefaultSessionMiddlewareConfig()
	cfg.SessionTTL = 2 * time.Hour
	m := NewSessionMiddleware(store, cfg)

	s := NewSession("oA", time.Minute)
	_ = store.Create(context.Background(), s)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: s.ID})
	m.Authenticate(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(httptest.NewRecorder(), req)

	got, err := store.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if time.Until(got.ExpiresAt) < time.Hour {
		t.Errorf("expiry not extended: %v", got.ExpiresAt)
	}
}

func TestSessionMiddleware_Destroy(t *testing.T) {
	store := NewMemorySessionStore()
	m := NewSessionMiddleware(store, nil)
	s, _ := m.CreateSession(context.Background(), httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), "oA")

	req := httptest.NewRequest(http.MethodPost, "/logout", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: s.ID})
	rec := httptest.NewRecorder()
	if err := m.DestroySession(context.Background(), rec, req); err != nil {
		t.Fatalf("DestroySession() error: %v", err)
	}
	if store.Count() != 0 {
		t.Errorf("Count() = %d, want 0", store.Count())
	}
	if c := rec.Result().Cookies(); len(c) != 1 || c[0].MaxAge >= 0 {
		t.Errorf("cookie not cleared: %+v", c)
	}
}

func TestSessionMiddlewareConfigFrom(t *testing.T) {
	c := SessionMiddlewareConfigFrom(&config.SecurityConfig{SessionTTL: 3 * time.Hour, CookieSecure: false})
	if c.SessionTTL != 3*time.Hour || c.CookieSecure {
		t.Errorf("config = %+v", c)
	}
	if c.CookieName != SessionCookieName {
		t.Errorf("CookieName = %q", c.CookieName)
	}
}
