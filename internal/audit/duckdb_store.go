// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/readmark/internal/logging"
)

var _ Store = (*DuckDBStore)(nil)

// DuckDBStore implements Store on the application database.
type DuckDBStore struct {
	db *sql.DB
}

// NewDuckDBStore creates a store on db. Call CreateTable before first use.
func NewDuckDBStore(db *sql.DB) *DuckDBStore {
	return &DuckDBStore{db: db}
}

var auditSchema = []string{
	`CREATE TABLE IF NOT EXISTS audit_events (
		id TEXT PRIMARY KEY,
		timestamp TIMESTAMPTZ NOT NULL,
		type TEXT NOT NULL,
		outcome TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		actor_type TEXT NOT NULL,
		target_id TEXT,
		target_type TEXT,
		description TEXT NOT NULL,
		metadata JSON,
		source_ip TEXT,
		request_id TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_events(timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_type ON audit_events(type)`,
	`CREATE INDEX IF NOT EXISTS idx_audit_actor_id ON audit_events(actor_id)`,
}

// CreateTable creates the audit_events table if it doesn't exist.
func (s *DuckDBStore) CreateTable(ctx context.Context) error {
	for _, stmt := range auditSchema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to execute audit schema statement: %w", err)
		}
	}
	logging.Debug().Msg("Audit events table created/verified")
	return nil
}

func (s *DuckDBStore) Save(ctx context.Context, event *Event) error {
	if event == nil {
		return errors.New("event cannot be nil")
	}

	var metadata *string
	if len(event.Metadata) > 0 {
		m := string(event.Metadata)
		metadata = &m
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (
			id, timestamp, type, outcome, actor_id, actor_type,
			target_id, target_type, description, metadata, source_ip, request_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp, string(event.Type), string(event.Outcome),
		event.ActorID, event.ActorType,
		nullString(event.TargetID), nullString(event.TargetType),
		event.Description, metadata,
		nullString(event.SourceIP), nullString(event.RequestID),
	)
	if err != nil {
		return fmt.Errorf("failed to save audit event: %w", err)
	}
	return nil
}

func (s *DuckDBStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	query, args := buildQuery(filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var (
			e                                         Event
			eventType, outcome                        string
			targetID, targetType, metadata, ip, reqID sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &eventType, &outcome, &e.ActorID, &e.ActorType,
			&targetID, &targetType, &e.Description, &metadata, &ip, &reqID); err != nil {
			return nil, fmt.Errorf("failed to scan audit event: %w", err)
		}
		e.Type = EventType(eventType)
		e.Outcome = Outcome(outcome)
		e.TargetID = targetID.String
		e.TargetType = targetType.String
		e.SourceIP = ip.String
		e.RequestID = reqID.String
		if metadata.Valid && metadata.String != "" {
			e.Metadata = []byte(metadata.String)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit events: %w", err)
	}
	return events, nil
}

func (s *DuckDBStore) Delete(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM audit_events WHERE timestamp < ?`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to delete audit events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted audit events: %w", err)
	}
	return n, nil
}

func buildQuery(filter QueryFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if len(filter.Types) > 0 {
		placeholders := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			placeholders[i] = "?"
			args = append(args, string(t))
		}
		conditions = append(conditions, "type IN ("+strings.Join(placeholders, ",")+")")
	}
	if filter.ActorID != "" {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, filter.ActorID)
	}
	if filter.TargetID != "" {
		conditions = append(conditions, "target_id = ?")
		args = append(args, filter.TargetID)
	}
	if !filter.Since.IsZero() {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, filter.Since)
	}

	query := `SELECT id, timestamp, type, outcome, actor_id, actor_type,
		target_id, target_type, description, CAST(metadata AS TEXT), source_ip, request_id
		FROM audit_events`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY timestamp DESC, id"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	return query, args
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
