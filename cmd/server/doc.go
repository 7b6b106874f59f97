// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

/*
Package main is the entry point for the Readmark server.

Readmark connects a WeChat official account to a university library. Followers
bind a library card in the chat, ask for book recommendations derived from
their loan history, and receive a scheduled recommendation push twice a
month. A small web app, opened from the account menu, lets readers browse the
catalog and share reflections on books.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("readmark")
	├── BackgroundSupervisor ("background-layer")
	│   ├── Recommendation scheduler (cron)
	│   ├── Session cleanup
	│   ├── Audit retention (AUDIT_ENABLED)
	│   └── Backup scheduler (BACKUP_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (web pages, /wechat webhook, probes)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, an optional YAML file and environment variables
 2. Logging: zerolog with JSON or console output
 3. Database: DuckDB with versioned migrations
 4. Library client: loan-history API behind a gobreaker circuit breaker
 5. WeChat: platform client, conversation store, message gateway and webhook handler
 6. Web auth: session store (memory or BadgerDB), OAuth state signer, casbin policy
 7. HTTP Server: chi router with the middleware stack
 8. Scheduler: cron-driven recommendation push
 9. Audit trail and scheduled backups, when enabled
 10. Supervisor Tree: Suture v4 process supervision

# Configuration

Configuration precedence, highest first:
  - Environment variables
  - Config file (CONFIG_PATH, config.yaml, /etc/readmark/config.yaml)
  - Built-in defaults

Required:
  - WECHAT_TOKEN: shared secret configured on the official account's server settings

For menus, OAuth login and pushes:
  - WECHAT_APPID, WECHAT_SECRET
  - PUBLIC_BASE_URL: externally reachable origin used for the menu and the OAuth callback

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests for up to 10 seconds, the scheduler stops waiting for its next run,
and the database and stores are closed once the tree has stopped.

# Example Usage

	export WECHAT_TOKEN=your-token
	export WECHAT_APPID=wx0123456789
	export WECHAT_SECRET=your-app-secret
	export PUBLIC_BASE_URL=https://read.example.edu
	export SECRET_KEY=$(openssl rand -base64 32)
	./readmark

Administrative tasks such as creating the menu, importing the catalog or
restoring a backup are handled by cmd/readmarkctl.
*/
package main
