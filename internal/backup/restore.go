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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/tomtom215/readmark/internal/logging"
)

// Verify checks the archive checksum and every database file inside it
// against the sidecar.
func (m *Manager) Verify(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.getLocked(id)
	if err != nil {
		return err
	}
	return m.verifyLocked(ctx, b, nil)
}

func (m *Manager) verifyLocked(ctx context.Context, b *Backup, extractTo map[string]string) error {
	archivePath := filepath.Join(m.cfg.Dir, b.FileName)
	sum, err := fileChecksum(archivePath)
	if err != nil {
		return err
	}
	if sum != b.Checksum {
		return fmt.Errorf("%w: archive %s", ErrChecksumMismatch, b.FileName)
	}
	return readArchive(ctx, archivePath, b, extractTo)
}

// readArchive walks the archive, checking each listed file's checksum. When
// extractTo maps an entry name to a path the entry is also written there.
//
//nolint:gosec // G304: archivePath is inside the backup directory
func readArchive(ctx context.Context, archivePath string, b *Backup, extractTo map[string]string) error {
	f, err := os.Open(archivePath)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("failed to read backup: %w", err)
	}
	defer func() { _ = gz.Close() }()

	expected := make(map[string]File, len(b.Files))
	for _, file := range b.Files {
		expected[file.Name] = file
	}

	tr := tar.NewReader(gz)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read backup entry: %w", err)
		}

		want, listed := expected[header.Name]
		if !listed {
			continue
		}
		delete(expected, header.Name)

		var dst io.Writer = io.Discard
		var out *os.File
		if path, ok := extractTo[header.Name]; ok {
			out, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o640)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", path, err)
			}
			dst = out
		}

		hasher := sha256.New()
		_, copyErr := io.Copy(io.MultiWriter(dst, hasher), tr) //nolint:gosec // G110: size is bounded by the listed file
		if out != nil {
			if err := out.Close(); err != nil && copyErr == nil {
				copyErr = err
			}
		}
		if copyErr != nil {
			return fmt.Errorf("failed to read %s: %w", header.Name, copyErr)
		}
		if hex.EncodeToString(hasher.Sum(nil)) != want.Checksum {
			return fmt.Errorf("%w: %s", ErrChecksumMismatch, header.Name)
		}
	}

	for _, file := range b.Files {
		if _, missing := expected[file.Name]; missing {
			return fmt.Errorf("%w: %s missing from archive", ErrChecksumMismatch, file.Name)
		}
	}
	return nil
}

// Restore verifies the snapshot and replaces the database at target with
// it. An existing database is kept as target.pre-restore-{timestamp}. The
// server must not have target open.
func (m *Manager) Restore(ctx context.Context, id, target string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, err := m.getLocked(id)
	if err != nil {
		return err
	}

	tempDir, err := os.MkdirTemp(filepath.Dir(target), ".readmark-restore-")
	if err != nil {
		return fmt.Errorf("failed to create restore directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	staged := map[string]string{
		entryDatabase: filepath.Join(tempDir, "readmark.duckdb"),
		entryWAL:      filepath.Join(tempDir, "readmark.duckdb.wal"),
	}
	if err := m.verifyLocked(ctx, b, staged); err != nil {
		return err
	}

	suffix := ".pre-restore-" + m.now().Format(timestampLayout)
	for _, path := range []string{target, target + ".wal"} {
		if _, err := os.Stat(path); err == nil {
			if err := os.Rename(path, path+suffix); err != nil {
				return fmt.Errorf("failed to move aside %s: %w", path, err)
			}
		}
	}

	if err := os.Rename(staged[entryDatabase], target); err != nil {
		return fmt.Errorf("failed to restore database file: %w", err)
	}
	if _, err := os.Stat(staged[entryWAL]); err == nil {
		if err := os.Rename(staged[entryWAL], target+".wal"); err != nil {
			return fmt.Errorf("failed to restore WAL file: %w", err)
		}
	}

	logging.Info().Str("backup_id", b.ID).Str("target", target).Msg("Database restored from backup")
	return nil
}

//nolint:gosec // G304: path is inside the backup directory
func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: archive %s is missing", ErrNotFound, filepath.Base(path))
		}
		return "", fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() { _ = f.Close() }()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to hash backup: %w", err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
