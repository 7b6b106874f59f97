// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/readmark/internal/models"
)

const readerColumns = `id, openid, reader_card, reader_type, COALESCE(nickname, ''), is_admin, created_at`

func scanReader(row interface{ Scan(...interface{}) error }) (*models.Reader, error) {
	var r models.Reader
	var readerType string
	if err := row.Scan(&r.ID, &r.OpenID, &r.ReaderCard, &readerType, &r.Nickname, &r.IsAdmin, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.ReaderType = models.ReaderType(readerType)
	return &r, nil
}

// UpsertReader binds openid to a patron card, replacing any previous binding
// of the same openid. Nickname and admin flag survive a rebind.
func (db *DB) UpsertReader(ctx context.Context, openid, card string, readerType models.ReaderType) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("upsert_reader", time.Now())

	query := `
		INSERT INTO readers (openid, reader_card, reader_type, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (openid) DO UPDATE SET
			reader_card = excluded.reader_card,
			reader_type = excluded.reader_type
	`
	if _, err := db.conn.ExecContext(ctx, query, openid, card, string(readerType), db.now()); err != nil {
		return fmt.Errorf("failed to upsert reader: %w", err)
	}
	return nil
}

// GetReaderByOpenID returns ErrNotFound when openid is not bound.
func (db *DB) GetReaderByOpenID(ctx context.Context, openid string) (*models.Reader, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("get_reader", time.Now())

	row := db.conn.QueryRowContext(ctx, `SELECT `+readerColumns+` FROM readers WHERE openid = ?`, openid)
	r, err := scanReader(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reader: %w", err)
	}
	return r, nil
}

// GetReaderByCard returns the most recently bound reader holding card.
func (db *DB) GetReaderByCard(ctx context.Context, card string) (*models.Reader, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("get_reader", time.Now())

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+readerColumns+` FROM readers WHERE reader_card = ? ORDER BY id DESC LIMIT 1`, card)
	r, err := scanReader(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reader by card: %w", err)
	}
	return r, nil
}

// DeleteReaderByOpenID removes the binding. It returns ErrNotFound when
// openid was not bound. Reflections written by the reader are kept.
func (db *DB) DeleteReaderByOpenID(ctx context.Context, openid string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("delete_reader", time.Now())

	res, err := db.conn.ExecContext(ctx, `DELETE FROM readers WHERE openid = ?`, openid)
	if err != nil {
		return fmt.Errorf("failed to delete reader: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListReaders returns every bound reader ordered by id.
func (db *DB) ListReaders(ctx context.Context) ([]*models.Reader, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("list_readers", time.Now())

	readers, err := queryAndScan(ctx, db.conn, `SELECT `+readerColumns+` FROM readers ORDER BY id`, nil,
		func(rows *sql.Rows) (*models.Reader, error) { return scanReader(rows) })
	if err != nil {
		return nil, fmt.Errorf("failed to list readers: %w", err)
	}
	return readers, nil
}

// UpdateNickname sets the display nickname of reader id.
func (db *DB) UpdateNickname(ctx context.Context, readerID int64, nickname string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("update_nickname", time.Now())

	res, err := db.conn.ExecContext(ctx, `UPDATE readers SET nickname = ? WHERE id = ?`, nickname, readerID)
	if err != nil {
		return fmt.Errorf("failed to update nickname: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAdmin grants or revokes the admin flag for openid.
func (db *DB) SetAdmin(ctx context.Context, openid string, admin bool) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `UPDATE readers SET is_admin = ? WHERE openid = ?`, admin, openid)
	if err != nil {
		return fmt.Errorf("failed to update admin flag: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
