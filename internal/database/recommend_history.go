// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/tomtom215/readmark/internal/models"
)

// RecommendedCallNumbers returns the distinct call numbers still held in the
// reader's recommendation history.
func (db *DB) RecommendedCallNumbers(ctx context.Context, readerID string) ([]string, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("recommended_call_numbers", time.Now())

	callNos, err := queryAndScan(ctx, db.conn,
		`SELECT DISTINCT book_call_no FROM recommend_history WHERE reader_id = ?`,
		[]interface{}{readerID},
		func(rows *sql.Rows) (string, error) {
			var s string
			err := rows.Scan(&s)
			return s, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to get recommendation history: %w", err)
	}
	return callNos, nil
}

// SaveRecommendations appends one batch for readerID and prunes the reader's
// history to the keep most recent rows, all in one transaction.
func (db *DB) SaveRecommendations(ctx context.Context, readerID string, books []models.Book, keep int) error {
	if len(books) == 0 {
		return nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("save_recommendations", time.Now())

	now := db.now()
	return db.withTx(ctx, func(tx *sql.Tx) error {
		for i := range books {
			rec := models.NewRecommendationRecord(readerID, &books[i], now)
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO recommend_history
					(reader_id, book_call_no, book_title, book_author, book_publisher, book_isbn, recommend_time)
				VALUES (?, ?, ?, ?, ?, ?, ?)`,
				rec.ReaderID, rec.CallNo, rec.Title, rec.Author, rec.Publisher, rec.ISBN, rec.RecommendedAt,
			); err != nil {
				return fmt.Errorf("failed to insert recommendation: %w", err)
			}
		}

		// Rows of one batch share recommend_time; id breaks the tie so the
		// newest batch always survives intact.
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM recommend_history
			WHERE reader_id = ?
			AND id NOT IN (
				SELECT id FROM recommend_history
				WHERE reader_id = ?
				ORDER BY recommend_time DESC, id DESC
				LIMIT ?
			)`, readerID, readerID, keep); err != nil {
			return fmt.Errorf("failed to prune recommendation history: %w", err)
		}
		return nil
	})
}

// ListRecommendations returns the reader's history, newest first.
func (db *DB) ListRecommendations(ctx context.Context, readerID string) ([]models.RecommendationRecord, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	records, err := queryAndScan(ctx, db.conn, `
		SELECT id, reader_id, book_call_no, book_title, book_author, book_publisher, book_isbn, recommend_time
		FROM recommend_history
		WHERE reader_id = ?
		ORDER BY recommend_time DESC, id DESC`,
		[]interface{}{readerID},
		func(rows *sql.Rows) (models.RecommendationRecord, error) {
			var r models.RecommendationRecord
			err := rows.Scan(&r.ID, &r.ReaderID, &r.CallNo, &r.Title, &r.Author, &r.Publisher, &r.ISBN, &r.RecommendedAt)
			return r, err
		})
	if err != nil {
		return nil, fmt.Errorf("failed to list recommendations: %w", err)
	}
	return records, nil
}
