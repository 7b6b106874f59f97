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

// findOrCreateUserBook returns the id of the first user book titled title,
// creating one owned by readerID when none exists.
func findOrCreateUserBook(ctx context.Context, q querier, readerID int64, title string, now time.Time) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM user_books WHERE title = ? ORDER BY id LIMIT 1`, title).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("failed to look up user book: %w", err)
	}

	if err := q.QueryRowContext(ctx,
		`INSERT INTO user_books (title, reader_id, created_at) VALUES (?, ?, ?) RETURNING id`,
		title, readerID, now).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert user book: %w", err)
	}
	return id, nil
}

// GetUserBook returns ErrNotFound for an unknown id.
func (db *DB) GetUserBook(ctx context.Context, id int64) (*models.UserBook, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var ub models.UserBook
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, title, reader_id, created_at FROM user_books WHERE id = ?`, id,
	).Scan(&ub.ID, &ub.Title, &ub.ReaderID, &ub.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user book: %w", err)
	}
	return &ub, nil
}
