// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

/*
Package auth provides web sessions for readers who open the site from the
official account menu.

The login flow is WeChat web OAuth with the snsapi_base scope:

	GET /login?next=/my_page
	  -> 302 to the WeChat authorize URL, state = signed JWT {next}
	GET /wechat_redirect?code=...&state=...
	  -> code exchanged for openid
	  -> session created, cookie readmark_session set
	  -> 302 to next

Components:

  - Session and SessionStore: the session record and its storage contract
  - MemorySessionStore: map backed store for development and tests
  - BadgerSessionStore: persistent store with an openid index
  - SessionStoreFactory: opens the configured backend
  - SessionMiddleware: resolves the cookie into a session on the request context
  - StateSigner: issues and verifies the OAuth state parameter

Sessions carry only the openid. Whether the openid is bound to a library card,
and whether it is an administrator, is looked up per request so that an unbind
or a promotion takes effect immediately.
*/
package auth
