// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

/*
Package wechat implements the official-account side of Readmark.

# Components

  - Signature verification for every webhook request (SHA-1 over the sorted
    token, timestamp and nonce).
  - The XML envelope codec for inbound messages and passive text replies.
  - ConversationStore, a keyed store holding each follower's dialogue state
    (idle or awaiting binding info), with in-memory and BadgerDB backends.
  - Gateway, the dispatcher that turns a verified message into a reply.
    Messages from the same openid are serialised with a keyed mutex.
  - Client, the platform API client: cached access token, OAuth code
    exchange, rate-limited customer-service pushes, and menu creation.
  - Handler, the http.Handler mounted at /wechat.

# Conversation Lifecycle

	idle ──bind request (not bound)──▶ awaiting
	awaiting ──valid bind info──▶ idle
	awaiting ──invalid bind info──▶ awaiting (idle when bind_single_shot is set)
	any ──unbind──▶ idle

Every inbound message first evicts conversations idle for longer than the
configured timeout (30 minutes by default).
*/
package wechat
