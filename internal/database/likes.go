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

// AddLike records that readerID likes reflectionID. Repeating it is a
// no-op. It returns the reflection's like count afterwards, or ErrNotFound
// when the reflection is not visible.
func (db *DB) AddLike(ctx context.Context, reflectionID, readerID int64) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("add_like", time.Now())

	now := db.now()
	var count int
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireVisible(ctx, tx, reflectionID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO likes (reflection_id, reader_id, created_at) VALUES (?, ?, ?)
			ON CONFLICT DO NOTHING`, reflectionID, readerID, now); err != nil {
			return fmt.Errorf("failed to insert like: %w", err)
		}
		c, err := countLikes(ctx, tx, reflectionID)
		count = c
		return err
	})
	return count, err
}

// ToggleLike flips readerID's like on reflectionID and returns the new state
// and count.
func (db *DB) ToggleLike(ctx context.Context, reflectionID, readerID int64) (liked bool, count int, err error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("toggle_like", time.Now())

	now := db.now()
	err = db.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireVisible(ctx, tx, reflectionID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx,
			`DELETE FROM likes WHERE reflection_id = ? AND reader_id = ?`, reflectionID, readerID)
		if err != nil {
			return fmt.Errorf("failed to delete like: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO likes (reflection_id, reader_id, created_at) VALUES (?, ?, ?)`,
				reflectionID, readerID, now); err != nil {
				return fmt.Errorf("failed to insert like: %w", err)
			}
			liked = true
		}
		count, err = countLikes(ctx, tx, reflectionID)
		return err
	})
	return liked, count, err
}

// HasLiked reports whether readerID currently likes reflectionID.
func (db *DB) HasLiked(ctx context.Context, reflectionID, readerID int64) (bool, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM likes WHERE reflection_id = ? AND reader_id = ?`, reflectionID, readerID).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check like: %w", err)
	}
	return n > 0, nil
}

func requireVisible(ctx context.Context, q querier, reflectionID int64) error {
	var status int
	err := q.QueryRowContext(ctx, `SELECT status FROM reflections WHERE id = ?`, reflectionID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) || (err == nil && status != models.StatusVisible) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up reflection: %w", err)
	}
	return nil
}

func countLikes(ctx context.Context, q querier, reflectionID int64) (int, error) {
	var n int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM likes WHERE reflection_id = ?`, reflectionID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count likes: %w", err)
	}
	return n, nil
}
