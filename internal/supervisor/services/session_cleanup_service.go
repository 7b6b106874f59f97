// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package services

import (
	"context"
	"time"

	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/metrics"
)

// SessionCleaner removes expired web sessions. Satisfied by auth.SessionStore.
type SessionCleaner interface {
	CleanupExpired(ctx context.Context) (int, error)
}

// sessionCounter is implemented by stores that can report their size.
type sessionCounter interface {
	Count() int
}

// SessionCleanupService periodically purges expired sessions and refreshes the
// sessions_active gauge when the store can count.
type SessionCleanupService struct {
	store    SessionCleaner
	interval time.Duration
	name     string
}

// NewSessionCleanupService creates the service. A non-positive interval means 5m.
func NewSessionCleanupService(store SessionCleaner, interval time.Duration) *SessionCleanupService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &SessionCleanupService{
		store:    store,
		interval: interval,
		name:     "session-cleanup",
	}
}

// Serve implements suture.Service. Cleanup failures are logged and retried on
// the next tick rather than restarting the service.
func (s *SessionCleanupService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.cleanup(ctx)
		}
	}
}

func (s *SessionCleanupService) cleanup(ctx context.Context) {
	removed, err := s.store.CleanupExpired(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("Session cleanup failed")
		return
	}
	if removed > 0 {
		logging.Debug().Int("removed", removed).Msg("Expired sessions removed")
	}
	if c, ok := s.store.(sessionCounter); ok {
		metrics.SetActiveSessions(c.Count())
	}
}

func (s *SessionCleanupService) String() string {
	return s.name
}
