// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

// Package backup takes and restores snapshots of the DuckDB database.
//
// A snapshot is a gzip-compressed tar archive:
//
//	readmark-{timestamp}-{id}.tar.gz
//	├── database/readmark.duckdb      (main database file)
//	├── database/readmark.duckdb.wal  (WAL file, if present)
//	└── backup-metadata.json          (file list and checksums)
//
// Next to each archive a sidecar readmark-{timestamp}-{id}.json holds the
// same metadata plus the SHA-256 of the archive itself, so List never has
// to open an archive.
//
// The database is checkpointed before it is copied. Restore extracts into
// the directory of the target and renames into place, so it must run while
// the server is stopped:
//
//	manager, _ := backup.NewManager(&cfg.Backup, db)
//	b, err := manager.Create(ctx, backup.TriggerManual)
//
//	// later, with the server stopped
//	err = manager.Restore(ctx, b.ID, cfg.Database.Path)
package backup

import (
	"context"
	"errors"
	"time"
)

// Trigger records why a snapshot was taken.
type Trigger string

const (
	TriggerManual    Trigger = "manual"
	TriggerScheduled Trigger = "scheduled"
)

// Archive entry names.
const (
	entryDatabase = "database/readmark.duckdb"
	entryWAL      = "database/readmark.duckdb.wal"
	entryMetadata = "backup-metadata.json"
)

var (
	// ErrNotFound is returned for an unknown backup ID.
	ErrNotFound = errors.New("backup not found")

	// ErrChecksumMismatch is returned when an archive or one of its files
	// does not match the recorded SHA-256.
	ErrChecksumMismatch = errors.New("backup checksum mismatch")

	// ErrNoDatabase is returned by Create on a manager without a database
	// or with an in-memory one.
	ErrNoDatabase = errors.New("no file-backed database to back up")
)

// Backup describes one snapshot.
type Backup struct {
	ID        string    `json:"id"`
	FileName  string    `json:"file_name"`
	CreatedAt time.Time `json:"created_at"`
	Trigger   Trigger   `json:"trigger"`

	// Size and Checksum cover the archive file. Neither is known while the
	// archive is being written, so the embedded copy leaves them empty.
	Size     int64  `json:"size,omitempty"`
	Checksum string `json:"checksum,omitempty"`

	SchemaVersion int    `json:"schema_version"`
	Files         []File `json:"files"`
}

// File is one database file inside an archive.
type File struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	Checksum string `json:"checksum"`
}

// Database is the part of the database layer a snapshot needs.
type Database interface {
	Checkpoint(ctx context.Context) error
	Path() string
	GetCurrentSchemaVersion(ctx context.Context) (int, error)
}
