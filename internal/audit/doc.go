// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

// Package audit keeps a trail of account and moderation events.
//
// # Event Types
//
// Chat (official account webhook):
//   - reader.bound, reader.bind_failed, reader.unbound
//
// Web:
//   - auth.login, auth.logout: sessions created by the OAuth callback
//   - reflection.moderated, authz.denied: moderator deletes
//
// Operator (readmarkctl):
//   - admin.granted, admin.revoked, catalog.imported, menu.published
//
// # Architecture
//
// The logger uses a producer-consumer pattern:
//
//	Logger.Log() -> Event Buffer (chan) -> Async Writer -> Store
//
// Log never blocks the webhook reply path; when the buffer is full the event
// is dropped with a warning. Close drains the buffer.
//
// DuckDBStore writes to the audit_events table in the application database.
// MemoryStore is used in tests and when auditing is disabled at the storage
// level.
//
// # Retention
//
// Logger implements suture.Service: Serve deletes events older than
// audit.retention_days every audit.cleanup_interval.
//
// # Usage Example
//
//	store := audit.NewDuckDBStore(db.Conn())
//	if err := store.CreateTable(ctx); err != nil {
//	    return err
//	}
//	trail := audit.NewLogger(store, &cfg.Audit)
//	defer trail.Close()
//
//	trail.ReaderBound(ctx, openid, card, models.ReaderTypeCard)
//
//	events, err := trail.Query(ctx, audit.QueryFilter{
//	    Types: []audit.EventType{audit.EventTypeReflectionModerated},
//	    Limit: 50,
//	})
package audit
