// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/readmark/internal/middleware"
)

// Router wires the handler, the webhook and the middleware stack.
type Router struct {
	handler       *Handler
	webhook       http.Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router. webhook serves /wechat and may be nil when the
// official account is not configured.
func NewRouter(handler *Handler, webhook http.Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	return &Router{handler: handler, webhook: webhook, chiMiddleware: mw}
}

// SetupChi configures all routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	// ========================
	// Probes and Metrics
	// ========================
	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/static/*", staticHandler())

	// ========================
	// Official Account Webhook
	// ========================
	if router.webhook != nil {
		r.With(router.chiMiddleware.RateLimit("wechat")).Handle("/wechat", router.webhook)
	}

	// ========================
	// Web Pages
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Compress(5, "text/html", "application/json"))
		r.Use(h.sessions.Authenticate)

		r.Get("/login", h.Login)
		r.Get("/wechat_redirect", h.WeChatRedirect)
		r.Post("/logout", h.Logout)

		r.Get("/", h.Index)
		r.Get("/book/{id}", h.BookDetail)
		r.Get("/reflections", h.Reflections)
		r.Get("/my_page", h.MyPage)
		r.Get("/my_reflection/edit/{id}", h.EditOwnForm)
		r.Get("/profile/edit", h.EditProfileForm)

		// Form posts share one per-IP limiter.
		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit("forms"))

			r.Post("/post_reflection", h.PostReflection)
			r.Post("/like", h.Like)
			r.Post("/toggle_like/{id}", h.ToggleLike)
			r.Post("/reflections", h.PostFeedReflection)
			r.Post("/reflection/delete/{id}", h.ModerateDelete)
			r.Post("/my_reflection/delete/{id}", h.DeleteOwn)
			r.Post("/my_reflection/edit/{id}", h.EditOwn)
			r.Post("/profile/edit", h.EditProfile)
		})
	})

	return r
}
