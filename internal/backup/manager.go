// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/readmark/internal/config"
	"github.com/tomtom215/readmark/internal/logging"
	"github.com/tomtom215/readmark/internal/metrics"
)

const (
	filePrefix      = "readmark-"
	archiveExt      = ".tar.gz"
	sidecarExt      = ".json"
	partialExt      = ".partial"
	timestampLayout = "20060102-150405"
)

// Manager creates, lists, prunes and restores snapshots in one directory.
// Operations are serialized.
type Manager struct {
	cfg config.BackupConfig
	db  Database
	now func() time.Time

	mu sync.Mutex

	onComplete func(b *Backup, err error)
}

// NewManager creates the backup directory if needed. db may be nil for a
// manager that only lists, verifies and restores.
func NewManager(cfg *config.BackupConfig, db Database) (*Manager, error) {
	c := *cfg
	if c.RetentionCount <= 0 {
		c.RetentionCount = 7
	}
	if c.CompressionLevel < 1 || c.CompressionLevel > 9 {
		c.CompressionLevel = 6
	}
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	if c.Dir == "" {
		return nil, fmt.Errorf("backup directory is required")
	}
	if err := os.MkdirAll(c.Dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory %s: %w", c.Dir, err)
	}

	return &Manager{
		cfg: c,
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// SetOnBackupComplete registers fn to run after every Create, successful or
// not. b is nil on failure.
func (m *Manager) SetOnBackupComplete(fn func(b *Backup, err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onComplete = fn
}

// Create checkpoints the database and writes a new snapshot.
func (m *Manager) Create(ctx context.Context, trigger Trigger) (*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(ctx, trigger)
}

func (m *Manager) createLocked(ctx context.Context, trigger Trigger) (b *Backup, err error) {
	start := m.now()
	defer func() {
		metrics.RecordBackup(err, start)
		if m.onComplete != nil {
			m.onComplete(b, err)
		}
	}()

	if m.db == nil || m.db.Path() == "" || m.db.Path() == ":memory:" {
		return nil, ErrNoDatabase
	}

	id := start.Format(timestampLayout) + "-" + uuid.NewString()[:8]
	b = &Backup{
		ID:        id,
		FileName:  filePrefix + id + archiveExt,
		CreatedAt: start,
		Trigger:   trigger,
	}

	if err := m.db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Checkpoint failed, backup may include uncommitted data")
	}
	if version, err := m.db.GetCurrentSchemaVersion(ctx); err == nil {
		b.SchemaVersion = version
	}

	archivePath := filepath.Join(m.cfg.Dir, b.FileName)
	if err := m.writeArchive(ctx, archivePath, b); err != nil {
		return nil, err
	}
	if err := m.writeSidecar(b); err != nil {
		_ = os.Remove(archivePath)
		return nil, err
	}

	logging.Info().
		Str("backup_id", b.ID).
		Str("trigger", string(trigger)).
		Int64("size", b.Size).
		Dur("duration", m.now().Sub(start)).
		Msg("Backup created")
	return b, nil
}

func (m *Manager) writeSidecar(b *Backup) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup metadata: %w", err)
	}
	path := filepath.Join(m.cfg.Dir, strings.TrimSuffix(b.FileName, archiveExt)+sidecarExt)
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("failed to write backup metadata: %w", err)
	}
	return nil
}

// List returns every snapshot with a readable sidecar, newest first.
func (m *Manager) List() ([]*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listLocked()
}

func (m *Manager) listLocked() ([]*Backup, error) {
	entries, err := os.ReadDir(m.cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup directory: %w", err)
	}

	var backups []*Backup
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, sidecarExt) {
			continue
		}
		//nolint:gosec // G304: name comes from the backup directory listing
		data, err := os.ReadFile(filepath.Join(m.cfg.Dir, name))
		if err != nil {
			logging.Warn().Err(err).Str("file", name).Msg("Skipping unreadable backup metadata")
			continue
		}
		var b Backup
		if err := json.Unmarshal(data, &b); err != nil {
			logging.Warn().Err(err).Str("file", name).Msg("Skipping corrupt backup metadata")
			continue
		}
		backups = append(backups, &b)
	}

	sort.Slice(backups, func(i, j int) bool {
		if backups[i].CreatedAt.Equal(backups[j].CreatedAt) {
			return backups[i].ID > backups[j].ID
		}
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Get returns the snapshot with the given ID.
func (m *Manager) Get(id string) (*Backup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(id)
}

func (m *Manager) getLocked(id string) (*Backup, error) {
	backups, err := m.listLocked()
	if err != nil {
		return nil, err
	}
	for _, b := range backups {
		if b.ID == id {
			return b, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Prune deletes all but the newest RetentionCount snapshots and returns how
// many were removed.
func (m *Manager) Prune() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pruneLocked()
}

func (m *Manager) pruneLocked() (int, error) {
	backups, err := m.listLocked()
	if err != nil {
		return 0, err
	}
	if len(backups) <= m.cfg.RetentionCount {
		return 0, nil
	}

	removed := 0
	for _, b := range backups[m.cfg.RetentionCount:] {
		if err := m.deleteFiles(b); err != nil {
			return removed, err
		}
		removed++
		logging.Info().Str("backup_id", b.ID).Msg("Pruned backup")
	}
	return removed, nil
}

func (m *Manager) deleteFiles(b *Backup) error {
	archive := filepath.Join(m.cfg.Dir, b.FileName)
	sidecar := filepath.Join(m.cfg.Dir, strings.TrimSuffix(b.FileName, archiveExt)+sidecarExt)
	for _, path := range []string{archive, sidecar} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// Serve takes a scheduled snapshot every Interval and prunes afterwards. It
// implements suture.Service.
func (m *Manager) Serve(ctx context.Context) error {
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", m.cfg.Interval).Int("keep", m.cfg.RetentionCount).Msg("Backup scheduler started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.runScheduled(ctx)
		}
	}
}

func (m *Manager) runScheduled(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, err := m.createLocked(ctx, TriggerScheduled); err != nil {
		logging.Error().Err(err).Msg("Scheduled backup failed")
		return
	}
	if _, err := m.pruneLocked(); err != nil {
		logging.Error().Err(err).Msg("Backup retention failed")
	}
}

func (m *Manager) String() string { return "backup-scheduler" }
