// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

/*
Package api serves Readmark's web pages and form endpoints.

Routes are registered on a chi router by SetupChi:

	GET  /healthz, /readyz, /metrics     probes and Prometheus exposition
	ANY  /wechat                         official account webhook (when configured)
	GET  /login, /wechat_redirect        WeChat web OAuth
	POST /logout
	GET  /, /book/{id}                   catalog browse and book detail
	POST /post_reflection, /like         card-number forms on the book page
	GET  /reflections, POST /reflections reflection feed
	POST /toggle_like/{id}               session reader likes (JSON)
	POST /reflection/delete/{id}         moderation (admin)
	GET  /my_page                        the reader's own reflections
	GET  /my_reflection/edit/{id}, POST /my_reflection/{edit,delete}/{id}
	GET  /profile/edit, POST /profile/edit

Pages are html/template files embedded from templates/. Every page route runs
behind auth.SessionMiddleware; handlers that need a bound reader answer 403
without a session and 404 when the follower has not bound a card.
Permissions come from the casbin policy in package authz.
*/
package api
