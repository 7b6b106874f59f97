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

const bookColumns = `id, title, COALESCE(author, ''), COALESCE(publisher, ''), call_no,
	COALESCE(isbn, ''), COALESCE(summary, ''), COALESCE(pub_year, '')`

func scanBook(row interface{ Scan(...interface{}) error }) (models.Book, error) {
	var b models.Book
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.Publisher, &b.CallNo, &b.ISBN, &b.Summary, &b.Year)
	return b, err
}

func scanBookRows(rows *sql.Rows) (models.Book, error) {
	return scanBook(rows)
}

// ListBooks returns one page of the catalog ordered by id. A non-empty query
// filters on a case-insensitive title substring.
func (db *DB) ListBooks(ctx context.Context, query string, limit, offset int) ([]models.Book, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("list_books", time.Now())

	sqlQuery := `SELECT ` + bookColumns + ` FROM books`
	args := []interface{}{}
	if query != "" {
		sqlQuery += ` WHERE title ILIKE ? ESCAPE '\'`
		args = append(args, containsPattern(query))
	}
	sqlQuery += ` ORDER BY id LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	books, err := queryAndScan(ctx, db.conn, sqlQuery, args, scanBookRows)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return books, nil
}

// CountBooks counts the rows ListBooks pages over.
func (db *DB) CountBooks(ctx context.Context, query string) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	sqlQuery := `SELECT COUNT(*) FROM books`
	args := []interface{}{}
	if query != "" {
		sqlQuery += ` WHERE title ILIKE ? ESCAPE '\'`
		args = append(args, containsPattern(query))
	}

	var n int
	if err := db.conn.QueryRowContext(ctx, sqlQuery, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count books: %w", err)
	}
	return n, nil
}

// GetBook returns ErrNotFound for an unknown id.
func (db *DB) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	b, err := scanBook(db.conn.QueryRowContext(ctx, `SELECT `+bookColumns+` FROM books WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return &b, nil
}

// FindBookByTitle returns the first catalog book whose title matches exactly.
func (db *DB) FindBookByTitle(ctx context.Context, title string) (*models.Book, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	b, err := scanBook(db.conn.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM books WHERE title = ? ORDER BY id LIMIT 1`, title))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find book by title: %w", err)
	}
	return &b, nil
}

// RelatedBooks returns up to limit other books by the same author.
func (db *DB) RelatedBooks(ctx context.Context, book *models.Book, limit int) ([]models.Book, error) {
	if book.Author == "" {
		return []models.Book{}, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	books, err := queryAndScan(ctx, db.conn,
		`SELECT `+bookColumns+` FROM books WHERE author = ? AND id <> ? ORDER BY id LIMIT ?`,
		[]interface{}{book.Author, book.ID, limit}, scanBookRows)
	if err != nil {
		return nil, fmt.Errorf("failed to list related books: %w", err)
	}
	return books, nil
}

// BooksByCallNoPrefix returns up to limit books, in random order, whose call
// number starts with prefix and is not in exclude.
func (db *DB) BooksByCallNoPrefix(ctx context.Context, prefix string, exclude []string, limit int) ([]models.Book, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("books_by_prefix", time.Now())

	clause, args := notInClause("call_no", exclude)
	query := `SELECT ` + bookColumns + ` FROM books
		WHERE ` + clause + ` AND call_no LIKE ? ESCAPE '\'
		ORDER BY random() LIMIT ?`
	args = append(args, prefixPattern(prefix), limit)

	books, err := queryAndScan(ctx, db.conn, query, args, scanBookRows)
	if err != nil {
		return nil, fmt.Errorf("failed to query books by prefix %s: %w", prefix, err)
	}
	return books, nil
}

// RandomBooks returns up to limit random books whose call number is not in exclude.
func (db *DB) RandomBooks(ctx context.Context, exclude []string, limit int) ([]models.Book, error) {
	if limit <= 0 {
		return []models.Book{}, nil
	}
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()
	defer observe("random_books", time.Now())

	clause, args := notInClause("call_no", exclude)
	query := `SELECT ` + bookColumns + ` FROM books WHERE ` + clause + ` ORDER BY random() LIMIT ?`
	args = append(args, limit)

	books, err := queryAndScan(ctx, db.conn, query, args, scanBookRows)
	if err != nil {
		return nil, fmt.Errorf("failed to query random books: %w", err)
	}
	return books, nil
}

// InsertBooks appends catalog rows in one transaction and returns how many
// were written. Rows without a title or call number are skipped.
func (db *DB) InsertBooks(ctx context.Context, books []models.Book) (int, error) {
	ctx, cancel := db.ensureContext(ctx)
	defer cancel()

	inserted := 0
	err := db.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO books (title, author, publisher, call_no, isbn, summary, pub_year)
			VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare book insert: %w", err)
		}
		defer closeWithLog(stmt, "statement")

		for i := range books {
			b := &books[i]
			if b.Title == "" || b.CallNo == "" {
				continue
			}
			if _, err := stmt.ExecContext(ctx, b.Title, b.Author, b.Publisher, b.CallNo, b.ISBN, b.Summary, b.Year); err != nil {
				return fmt.Errorf("failed to insert book %q: %w", b.Title, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}
