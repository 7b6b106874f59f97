// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/goccy/go-json"
)

// archiveWriters chains file, hash, gzip and tar writers.
type archiveWriters struct {
	tw      *tar.Writer
	hasher  hash.Hash
	closers []io.Closer
}

// Close closes all writers in reverse order, returning the first error.
func (aw *archiveWriters) Close() error {
	var firstErr error
	for i := len(aw.closers) - 1; i >= 0; i-- {
		if err := aw.closers[i].Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

//nolint:gosec // G304: path is built from the configured backup directory
func (m *Manager) setupArchiveWriters(path string) (*archiveWriters, error) {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}

	hasher := sha256.New()
	gz, err := gzip.NewWriterLevel(io.MultiWriter(out, hasher), m.cfg.CompressionLevel)
	if err != nil {
		_ = out.Close()
		return nil, fmt.Errorf("failed to create gzip writer: %w", err)
	}
	tw := tar.NewWriter(gz)

	return &archiveWriters{
		tw:      tw,
		hasher:  hasher,
		closers: []io.Closer{out, gz, tw},
	}, nil
}

// writeArchive writes the database files and metadata to a partial file,
// then renames it to path. b gains its file list, size and checksum.
func (m *Manager) writeArchive(ctx context.Context, path string, b *Backup) (err error) {
	partial := path + partialExt
	defer func() {
		if err != nil {
			_ = os.Remove(partial)
		}
	}()

	aw, err := m.setupArchiveWriters(partial)
	if err != nil {
		return err
	}

	dbPath := m.db.Path()
	if err := addFileToArchive(ctx, aw.tw, dbPath, entryDatabase, b); err != nil {
		_ = aw.Close()
		return fmt.Errorf("failed to add database file: %w", err)
	}
	if _, statErr := os.Stat(dbPath + ".wal"); statErr == nil {
		if err := addFileToArchive(ctx, aw.tw, dbPath+".wal", entryWAL, b); err != nil {
			_ = aw.Close()
			return fmt.Errorf("failed to add WAL file: %w", err)
		}
	}
	if err := addMetadataToArchive(aw.tw, b); err != nil {
		_ = aw.Close()
		return err
	}

	// The hash is complete only after gzip has flushed its footer.
	if err := aw.Close(); err != nil {
		return fmt.Errorf("failed to finalize backup archive: %w", err)
	}
	b.Checksum = hex.EncodeToString(aw.hasher.Sum(nil))

	info, err := os.Stat(partial)
	if err != nil {
		return fmt.Errorf("failed to stat backup archive: %w", err)
	}
	b.Size = info.Size()

	if err := os.Rename(partial, path); err != nil {
		return fmt.Errorf("failed to finalize backup archive: %w", err)
	}
	return nil
}

//nolint:gosec // G304: src is the configured database path
func addFileToArchive(ctx context.Context, tw *tar.Writer, src, name string, b *Backup) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = file.Close() }()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return fmt.Errorf("failed to create tar header for %s: %w", src, err)
	}
	header.Name = name
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write tar header for %s: %w", src, err)
	}

	hasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(tw, hasher), file)
	if err != nil {
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}

	b.Files = append(b.Files, File{
		Name:     name,
		Size:     written,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	})
	return nil
}

func addMetadataToArchive(tw *tar.Writer, b *Backup) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup metadata: %w", err)
	}

	header := &tar.Header{
		Name:    entryMetadata,
		Size:    int64(len(data)),
		Mode:    0o640,
		ModTime: b.CreatedAt,
	}
	if err := tw.WriteHeader(header); err != nil {
		return fmt.Errorf("failed to write metadata header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	return nil
}
