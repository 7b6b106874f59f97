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

// reflectionViewQuery joins a reflection with its title, author and likes.
// Authors who unbound keep their reflections; their reader columns come back empty.
const reflectionViewQuery = `
	SELECT r.id, r.book_id, r.user_book_id, r.reader_id, r.content, r.status, r.created_at,
		COALESCE(b.title, ub.title, ''),
		COALESCE(rd.reader_card, ''),
		COALESCE(rd.reader_type, '0'),
		COALESCE(rd.nickname, ''),
		(SELECT COUNT(*) FROM likes l WHERE l.reflection_id = r.id)
	FROM reflections r
	LEFT JOIN books b ON r.book_id = b.id
	LEFT JOIN user_books ub ON r.user_book_id = ub.id
	LEFT JOIN readers rd ON r.reader_id = rd.id
`

func scanReflectionView(row interface{ Scan(...interface{}) error }) (models.ReflectionView, error) {
	var v models.ReflectionView
	var bookID, userBookID sql.NullInt64
	var readerType string
	err := row.Scan(&v.ID, &bookID, &userBookID, &v.ReaderID, &v.Content, &v.Status, &v.CreatedAt,
		&v.BookTitle, &v.ReaderCard, &readerType, &v.Nickname, &v.Likes)
	if err != nil {
		return v, err
	}
	v.BookID = int64Ptr(bookID)
	v.UserBookID = int64Ptr(userBookID)
	v.ReaderType = models.ReaderType(readerType)
	return v, nil
}

func scanReflectionViewRows(rows *sql.Rows) (models.ReflectionView, error) {
	return scanReflectionView(rows)
}

// CreateReflection stores a visible reflection and returns its id.
func (db *DB) CreateReflection(ctx context.Context, r *models.Reflection) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("create_reflection", time.Now())

	return insertReflection(ctx, db.conn, r, db.now())
}

func insertReflection(ctx context.Context, q querier, r *models.Reflection, now time.Time) (int64, error) {
	if (r.BookID == nil) == (r.UserBookID == nil) {
		return 0, fmt.Errorf("reflection must reference exactly one of book or user book")
	}
	var id int64
	err := q.QueryRowContext(ctx, `
		INSERT INTO reflections (book_id, user_book_id, reader_id, content, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id`,
		nullInt64(r.BookID), nullInt64(r.UserBookID), r.ReaderID, r.Content, models.StatusVisible, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert reflection: %w", err)
	}
	return id, nil
}

// PostReflectionByTitle attaches a reflection to a title typed by the reader.
// The title resolves to a catalog book when one matches exactly, then to an
// existing user book, and otherwise a new user book is created.
func (db *DB) PostReflectionByTitle(ctx context.Context, readerID int64, title, content string) (int64, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("post_reflection_by_title", time.Now())

	now := db.now()
	var reflectionID int64
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		r := &models.Reflection{ReaderID: readerID, Content: content}

		var bookID int64
		err := tx.QueryRowContext(ctx, `SELECT id FROM books WHERE title = ? ORDER BY id LIMIT 1`, title).Scan(&bookID)
		switch {
		case err == nil:
			r.BookID = &bookID
		case errors.Is(err, sql.ErrNoRows):
			ubID, err := findOrCreateUserBook(ctx, tx, readerID, title, now)
			if err != nil {
				return err
			}
			r.UserBookID = &ubID
		default:
			return fmt.Errorf("failed to look up book by title: %w", err)
		}

		id, err := insertReflection(ctx, tx, r, now)
		if err != nil {
			return err
		}
		reflectionID = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	return reflectionID, nil
}

// GetReflection returns a reflection of any status.
func (db *DB) GetReflection(ctx context.Context, id int64) (*models.ReflectionView, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	v, err := scanReflectionView(db.conn.QueryRowContext(ctx, reflectionViewQuery+` WHERE r.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get reflection: %w", err)
	}
	return &v, nil
}

// ListBookReflections returns visible reflections on a catalog book, newest first.
func (db *DB) ListBookReflections(ctx context.Context, bookID int64) ([]models.ReflectionView, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	views, err := queryAndScan(ctx, db.conn,
		reflectionViewQuery+` WHERE r.book_id = ? AND r.status = ? ORDER BY r.created_at DESC, r.id DESC`,
		[]interface{}{bookID, models.StatusVisible}, scanReflectionViewRows)
	if err != nil {
		return nil, fmt.Errorf("failed to list book reflections: %w", err)
	}
	return views, nil
}

// ListReflectionFeed returns one page of all visible reflections, newest first.
func (db *DB) ListReflectionFeed(ctx context.Context, limit, offset int) ([]models.ReflectionView, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("reflection_feed", time.Now())

	views, err := queryAndScan(ctx, db.conn,
		reflectionViewQuery+` WHERE r.status = ? ORDER BY r.created_at DESC, r.id DESC LIMIT ? OFFSET ?`,
		[]interface{}{models.StatusVisible, limit, offset}, scanReflectionViewRows)
	if err != nil {
		return nil, fmt.Errorf("failed to list reflection feed: %w", err)
	}
	return views, nil
}

// CountVisibleReflections counts the rows ListReflectionFeed pages over.
func (db *DB) CountVisibleReflections(ctx context.Context) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	var n int
	if err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reflections WHERE status = ?`, models.StatusVisible).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count reflections: %w", err)
	}
	return n, nil
}

// ListReaderReflections returns the reader's own visible reflections, newest first.
func (db *DB) ListReaderReflections(ctx context.Context, readerID int64) ([]models.ReflectionView, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	views, err := queryAndScan(ctx, db.conn,
		reflectionViewQuery+` WHERE r.reader_id = ? AND r.status = ? ORDER BY r.created_at DESC, r.id DESC`,
		[]interface{}{readerID, models.StatusVisible}, scanReflectionViewRows)
	if err != nil {
		return nil, fmt.Errorf("failed to list reader reflections: %w", err)
	}
	return views, nil
}

// HideReflection soft-deletes any reflection. Moderation only.
func (db *DB) HideReflection(ctx context.Context, id int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx, `UPDATE reflections SET status = ? WHERE id = ?`, models.StatusHidden, id)
	if err != nil {
		return fmt.Errorf("failed to hide reflection: %w", err)
	}
	return requireAffected(res)
}

// HideOwnReflection soft-deletes a visible reflection written by readerID.
// It returns ErrNotFound when the reflection does not exist, is already
// hidden or belongs to someone else.
func (db *DB) HideOwnReflection(ctx context.Context, id, readerID int64) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE reflections SET status = ? WHERE id = ? AND reader_id = ? AND status = ?`,
		models.StatusHidden, id, readerID, models.StatusVisible)
	if err != nil {
		return fmt.Errorf("failed to hide reflection: %w", err)
	}
	return requireAffected(res)
}

// UpdateOwnReflection replaces the content of a visible reflection written by readerID.
func (db *DB) UpdateOwnReflection(ctx context.Context, id, readerID int64, content string) error {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE reflections SET content = ? WHERE id = ? AND reader_id = ? AND status = ?`,
		content, id, readerID, models.StatusVisible)
	if err != nil {
		return fmt.Errorf("failed to update reflection: %w", err)
	}
	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
