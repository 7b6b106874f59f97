// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType categorizes audit events.
type EventType string

const (
	// Account binding events (official account chat)
	EventTypeReaderBound      EventType = "reader.bound"
	EventTypeReaderBindFailed EventType = "reader.bind_failed"
	EventTypeReaderUnbound    EventType = "reader.unbound"

	// Web session events
	EventTypeLogin  EventType = "auth.login"
	EventTypeLogout EventType = "auth.logout"

	// Moderation events
	EventTypeReflectionModerated EventType = "reflection.moderated"
	EventTypeModerationDenied    EventType = "authz.denied"

	// Operator events
	EventTypeAdminGranted  EventType = "admin.granted"
	EventTypeAdminRevoked  EventType = "admin.revoked"
	EventTypeCatalogImport EventType = "catalog.imported"
	EventTypeMenuPublished EventType = "menu.published"

	// Database snapshots
	EventTypeBackupCreated  EventType = "backup.created"
	EventTypeBackupRestored EventType = "backup.restored"
)

// Outcome indicates whether an action succeeded or failed.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Actor types.
const (
	ActorReader   = "reader"
	ActorSystem   = "system"
	ActorOperator = "operator"
)

// Event is one audit record.
type Event struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Outcome   Outcome   `json:"outcome"`

	// ActorID is an openid for readers, a hostname or "cli" for operators.
	ActorID   string `json:"actor_id"`
	ActorType string `json:"actor_type"`

	TargetID   string `json:"target_id,omitempty"`
	TargetType string `json:"target_type,omitempty"`

	Description string          `json:"description"`
	Metadata    json.RawMessage `json:"metadata,omitempty"`

	SourceIP  string `json:"source_ip,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error

	// Query returns matching events, most recent first.
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)

	// Delete removes events older than the cutoff and returns how many.
	Delete(ctx context.Context, olderThan time.Time) (int64, error)
}

// QueryFilter selects events. Zero fields match everything.
type QueryFilter struct {
	Types    []EventType
	ActorID  string
	TargetID string
	Since    time.Time
	Limit    int
}

// DefaultQueryFilter returns the 100 most recent events.
func DefaultQueryFilter() QueryFilter {
	return QueryFilter{Limit: 100}
}

func (f *QueryFilter) matches(e *Event) bool {
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if e.Type == t {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ActorID != "" && e.ActorID != f.ActorID {
		return false
	}
	if f.TargetID != "" && e.TargetID != f.TargetID {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
