// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package audit

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/models"
)

const saveTimeout = 5 * time.Second

// Logger records audit events asynchronously. A nil *Logger is valid and
// discards everything, so collaborators can take one unconditionally.
type Logger struct {
	cfg   config.AuditConfig
	store Store
	now   func() time.Time

	eventChan chan *Event
	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewLogger starts the background writer. Call Close to flush.
func NewLogger(store Store, cfg *config.AuditConfig) *Logger {
	c := *cfg
	if c.BufferSize <= 0 {
		c.BufferSize = 1000
	}
	if c.RetentionDays <= 0 {
		c.RetentionDays = 180
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = 24 * time.Hour
	}

	l := &Logger{
		cfg:       c,
		store:     store,
		now:       time.Now,
		eventChan: make(chan *Event, c.BufferSize),
		stopChan:  make(chan struct{}),
	}

	l.wg.Add(1)
	go l.asyncWriter()
	return l
}

func (l *Logger) asyncWriter() {
	defer l.wg.Done()

	for {
		select {
		case <-l.stopChan:
			// Drain remaining events
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		}
	}
}

func (l *Logger) writeEvent(event *Event) {
	if l.cfg.LogToStdout {
		if data, err := json.Marshal(event); err == nil {
			logging.Info().RawJSON("event", data).Msg("Audit event")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := l.store.Save(ctx, event); err != nil {
		logging.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to save audit event")
	}
}

// Log queues event. It never blocks; a full buffer drops the event.
func (l *Logger) Log(event *Event) {
	if l == nil || !l.cfg.Enabled {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}

	select {
	case <-l.stopChan:
		logging.Warn().Str("event_type", string(event.Type)).Msg("Audit logger closed, dropping event")
	case l.eventChan <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Msg("Audit event buffer full, dropping event")
	}
}

// Close flushes queued events and stops the writer.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	l.closeOnce.Do(func() { close(l.stopChan) })
	l.wg.Wait()
	return nil
}

// Query reads events from the store.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Cleanup deletes events past the retention period.
func (l *Logger) Cleanup(ctx context.Context) (int64, error) {
	cutoff := l.now().AddDate(0, 0, -l.cfg.RetentionDays)
	return l.store.Delete(ctx, cutoff)
}

// Serve runs retention cleanup until ctx is done. It implements suture.Service.
func (l *Logger) Serve(ctx context.Context) error {
	ticker := time.NewTicker(l.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			count, err := l.Cleanup(ctx)
			if err != nil {
				logging.Error().Err(err).Msg("Audit cleanup error")
			} else if count > 0 {
				logging.Info().Int64("count", count).Msg("Cleaned up old audit events")
			}
		}
	}
}

func (l *Logger) String() string { return "audit-retention" }

// Helper methods for common audit events

// ReaderBound records a successful bind from the chat.
func (l *Logger) ReaderBound(ctx context.Context, openid, card string, readerType models.ReaderType) {
	l.Log(&Event{
		Type:        EventTypeReaderBound,
		Outcome:     OutcomeSuccess,
		ActorID:     openid,
		ActorType:   ActorReader,
		TargetID:    card,
		TargetType:  "reader_card",
		Description: "Reader bound library account",
		Metadata:    mustJSON(map[string]string{"reader_type": readerType.Label()}),
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// BindFailed records a rejected bind submission. The submitted text is not
// kept.
func (l *Logger) BindFailed(ctx context.Context, openid, reason string) {
	l.Log(&Event{
		Type:        EventTypeReaderBindFailed,
		Outcome:     OutcomeFailure,
		ActorID:     openid,
		ActorType:   ActorReader,
		Description: "Bind submission rejected: " + reason,
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// ReaderUnbound records an unbind from the chat.
func (l *Logger) ReaderUnbound(ctx context.Context, openid string) {
	l.Log(&Event{
		Type:        EventTypeReaderUnbound,
		Outcome:     OutcomeSuccess,
		ActorID:     openid,
		ActorType:   ActorReader,
		Description: "Reader unbound library account",
		RequestID:   logging.RequestIDFromContext(ctx),
	})
}

// Login records a web session created by the OAuth callback.
func (l *Logger) Login(r *http.Request, openid string) {
	l.Log(&Event{
		Type:        EventTypeLogin,
		Outcome:     OutcomeSuccess,
		ActorID:     openid,
		ActorType:   ActorReader,
		Description: "Web session created via WeChat OAuth",
		SourceIP:    sourceIP(r),
		RequestID:   logging.RequestIDFromContext(r.Context()),
	})
}

// Logout records a destroyed web session.
func (l *Logger) Logout(r *http.Request, openid string) {
	l.Log(&Event{
		Type:        EventTypeLogout,
		Outcome:     OutcomeSuccess,
		ActorID:     openid,
		ActorType:   ActorReader,
		Description: "Web session destroyed",
		SourceIP:    sourceIP(r),
		RequestID:   logging.RequestIDFromContext(r.Context()),
	})
}

// ReflectionModerated records a moderator hiding a reflection.
func (l *Logger) ReflectionModerated(r *http.Request, openid string, reflectionID int64) {
	l.Log(&Event{
		Type:        EventTypeReflectionModerated,
		Outcome:     OutcomeSuccess,
		ActorID:     openid,
		ActorType:   ActorReader,
		TargetID:    strconv.FormatInt(reflectionID, 10),
		TargetType:  "reflection",
		Description: "Reflection hidden by moderator",
		SourceIP:    sourceIP(r),
		RequestID:   logging.RequestIDFromContext(r.Context()),
	})
}

// ModerationDenied records a moderation attempt without the permission.
func (l *Logger) ModerationDenied(r *http.Request, openid string, reflectionID int64) {
	l.Log(&Event{
		Type:        EventTypeModerationDenied,
		Outcome:     OutcomeFailure,
		ActorID:     openid,
		ActorType:   ActorReader,
		TargetID:    strconv.FormatInt(reflectionID, 10),
		TargetType:  "reflection",
		Description: "Moderation denied",
		SourceIP:    sourceIP(r),
		RequestID:   logging.RequestIDFromContext(r.Context()),
	})
}

// AdminChanged records an operator granting or revoking moderator rights.
func (l *Logger) AdminChanged(operator, openid string, granted bool) {
	eventType, desc := EventTypeAdminGranted, "Moderator rights granted"
	if !granted {
		eventType, desc = EventTypeAdminRevoked, "Moderator rights revoked"
	}
	l.Log(&Event{
		Type:        eventType,
		Outcome:     OutcomeSuccess,
		ActorID:     operator,
		ActorType:   ActorOperator,
		TargetID:    openid,
		TargetType:  "reader",
		Description: desc,
	})
}

// CatalogImported records a catalog import run.
func (l *Logger) CatalogImported(operator, file string, imported, skipped int, err error) {
	event := &Event{
		Type:        EventTypeCatalogImport,
		Outcome:     OutcomeSuccess,
		ActorID:     operator,
		ActorType:   ActorOperator,
		TargetID:    file,
		TargetType:  "file",
		Description: "Catalog imported",
		Metadata:    mustJSON(map[string]int{"imported": imported, "skipped": skipped}),
	}
	if err != nil {
		event.Outcome = OutcomeFailure
		event.Description = "Catalog import failed: " + err.Error()
	}
	l.Log(event)
}

// MenuPublished records an attempt to publish the official account menu.
func (l *Logger) MenuPublished(actorID, actorType string, err error) {
	event := &Event{
		Type:        EventTypeMenuPublished,
		Outcome:     OutcomeSuccess,
		ActorID:     actorID,
		ActorType:   actorType,
		Description: "Official account menu published",
	}
	if err != nil {
		event.Outcome = OutcomeFailure
		event.Description = "Menu publication failed: " + err.Error()
	}
	l.Log(event)
}

// BackupCreated records a database snapshot attempt. id is empty on failure.
func (l *Logger) BackupCreated(actorID, actorType, id string, err error) {
	event := &Event{
		Type:        EventTypeBackupCreated,
		Outcome:     OutcomeSuccess,
		ActorID:     actorID,
		ActorType:   actorType,
		TargetID:    id,
		TargetType:  "backup",
		Description: "Database backup created",
	}
	if err != nil {
		event.Outcome = OutcomeFailure
		event.Description = "Database backup failed: " + err.Error()
	}
	l.Log(event)
}

// BackupRestored records an operator restoring the database.
func (l *Logger) BackupRestored(operator, id string, err error) {
	event := &Event{
		Type:        EventTypeBackupRestored,
		Outcome:     OutcomeSuccess,
		ActorID:     operator,
		ActorType:   ActorOperator,
		TargetID:    id,
		TargetType:  "backup",
		Description: "Database restored from backup",
	}
	if err != nil {
		event.Outcome = OutcomeFailure
		event.Description = "Database restore failed: " + err.Error()
	}
	l.Log(event)
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}

func sourceIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
