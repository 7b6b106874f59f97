// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/logging"
)

// SessionCookieName is the cookie that carries the session ID.
const SessionCookieName = "readmark_session"

type contextKey string

const sessionContextKey contextKey = "session"

// SessionMiddlewareConfig holds configuration for the session middleware.
type SessionMiddlewareConfig struct {
	// CookieName is the name of the session cookie.
	CookieName string

	// SessionTTL is the session time-to-live.
	SessionTTL time.Duration

	// SlidingSession enables session expiry extension on each request.
	SlidingSession bool

	CookiePath     string
	CookieSecure   bool
	CookieHTTPOnly bool
	CookieSameSite http.SameSite
}

// DefaultSessionMiddlewareConfig returns sensible defaults.
func DefaultSessionMiddlewareConfig() *SessionMiddlewareConfig {
	return &SessionMiddlewareConfig{
		CookieName:     SessionCookieName,
		SessionTTL:     24 * time.Hour,
		SlidingSession: true,
		CookiePath:     "/",
		CookieSecure:   true,
		CookieHTTPOnly: true,
		CookieSameSite: http.SameSiteLaxMode,
	}
}

// SessionMiddlewareConfigFrom applies the security settings to the defaults.
func SessionMiddlewareConfigFrom(cfg *config.SecurityConfig) *SessionMiddlewareConfig {
	c := DefaultSessionMiddlewareConfig()
	if cfg.SessionTTL > 0 {
		c.SessionTTL = cfg.SessionTTL
	}
	c.CookieSecure = cfg.CookieSecure
	return c
}

// SessionMiddleware provides session-based authentication middleware.
type SessionMiddleware struct {
	store  SessionStore
	config *SessionMiddlewareConfig
}

// NewSessionMiddleware creates a new session middleware.
func NewSessionMiddleware(store SessionStore, config *SessionMiddlewareConfig) *SessionMiddleware {
	if config == nil {
		config = DefaultSessionMiddlewareConfig()
	}
	return &SessionMiddleware{
		store:  store,
		config: config,
	}
}

// Store returns the backing session store.
func (m *SessionMiddleware) Store() SessionStore {
	return m.store
}

// Authenticate resolves the session cookie and stores the session on the
// request context. Requests without a valid session continue anonymously.
func (m *SessionMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := m.extractSessionID(r)
		if sessionID == "" {
			next.ServeHTTP(w, r)
			return
		}

		session, err := m.store.Get(r.Context(), sessionID)
		if err != nil {
			if !errors.Is(err, ErrSessionNotFound) && !errors.Is(err, ErrSessionExpired) {
				logging.Ctx(r.Context()).Error().Err(err).Msg("Session lookup error")
			}
			next.ServeHTTP(w, r)
			return
		}

		// Touch session to extend expiry (sliding sessions)
		if m.config.SlidingSession {
			newExpiry := time.Now().Add(m.config.SessionTTL)
			if touchErr := m.store.Touch(r.Context(), sessionID, newExpiry); touchErr != nil {
				logging.Ctx(r.Context()).Error().Err(touchErr).Msg("Failed to touch session")
			}
		}

		ctx := context.WithValue(r.Context(), sessionContextKey, session)
		ctx = logging.ContextWithOpenID(ctx, session.OpenID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSession returns the session attached by Authenticate, or nil.
func GetSession(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionContextKey).(*Session)
	return s
}

// WithSession attaches s to ctx. Handlers under test use it in place of
// Authenticate.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionContextKey, s)
}

func (m *SessionMiddleware) extractSessionID(r *http.Request) string {
	cookie, err := r.Cookie(m.config.CookieName)
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return ""
}

// SetSessionCookie sets the session cookie on the response.
func (m *SessionMiddleware) SetSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    sessionID,
		Path:     m.config.CookiePath,
		MaxAge:   int(m.config.SessionTTL.Seconds()),
		Secure:   m.config.CookieSecure,
		HttpOnly: m.config.CookieHTTPOnly,
		SameSite: m.config.CookieSameSite,
	})
}

// ClearSessionCookie clears the session cookie.
func (m *SessionMiddleware) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     m.config.CookiePath,
		MaxAge:   -1,
		Secure:   m.config.CookieSecure,
		HttpOnly: m.config.CookieHTTPOnly,
		SameSite: m.config.CookieSameSite,
	})
}

// CreateSession creates a session for openid and sets the cookie. The
// request's previous session, if any, is deleted first so a fresh ID is
// issued after every login.
func (m *SessionMiddleware) CreateSession(ctx context.Context, w http.ResponseWriter, r *http.Request, openid string) (*Session, error) {
	if old := m.extractSessionID(r); old != "" {
		if err := m.store.Delete(ctx, old); err != nil {
			logging.Ctx(ctx).Warn().Err(err).Msg("Failed to delete previous session")
		}
	}

	session := NewSession(openid, m.config.SessionTTL)
	if err := m.store.Create(ctx, session); err != nil {
		return nil, err
	}

	m.SetSessionCookie(w, session.ID)
	return session, nil
}

// DestroySession deletes the request's session and clears the cookie.
func (m *SessionMiddleware) DestroySession(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	m.ClearSessionCookie(w)
	id := m.extractSessionID(r)
	if id == "" {
		return nil
	}
	return m.store.Delete(ctx, id)
}
