// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package database

import (
	"context"
	"fmt"
	"time"
)

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// Foreign keys are deliberately absent: unbinding deletes the readers row
// while the reader's reflections and likes stay. Queries LEFT JOIN readers.
var tableCreationQueries = []string{
	`CREATE SEQUENCE IF NOT EXISTS seq_readers START 1`,
	`CREATE TABLE IF NOT EXISTS readers (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_readers'),
		openid TEXT NOT NULL UNIQUE,
		reader_card TEXT NOT NULL,
		reader_type TEXT NOT NULL DEFAULT '0',
		nickname TEXT,
		is_admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS seq_books START 1`,
	`CREATE TABLE IF NOT EXISTS books (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_books'),
		title TEXT NOT NULL,
		author TEXT,
		publisher TEXT,
		call_no TEXT NOT NULL,
		isbn TEXT,
		summary TEXT,
		pub_year TEXT
	)`,

	`CREATE SEQUENCE IF NOT EXISTS seq_recommend_history START 1`,
	`CREATE TABLE IF NOT EXISTS recommend_history (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_recommend_history'),
		reader_id TEXT NOT NULL,
		book_call_no TEXT NOT NULL,
		book_title TEXT NOT NULL,
		book_author TEXT NOT NULL,
		book_publisher TEXT NOT NULL,
		book_isbn TEXT NOT NULL DEFAULT '',
		recommend_time TIMESTAMP NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS seq_user_books START 1`,
	`CREATE TABLE IF NOT EXISTS user_books (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_user_books'),
		title TEXT NOT NULL,
		reader_id BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE SEQUENCE IF NOT EXISTS seq_reflections START 1`,
	`CREATE TABLE IF NOT EXISTS reflections (
		id BIGINT PRIMARY KEY DEFAULT nextval('seq_reflections'),
		book_id BIGINT,
		user_book_id BIGINT,
		reader_id BIGINT NOT NULL,
		content TEXT NOT NULL,
		status INTEGER NOT NULL DEFAULT 1,
		created_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS likes (
		reflection_id BIGINT NOT NULL,
		reader_id BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (reflection_id, reader_id)
	)`,
}

func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range tableCreationQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}
	return nil
}

// Indexes cover lookup columns that are never updated in place, which keeps
// DuckDB's index-on-update restrictions out of the way.
var indexQueries = []string{
	`CREATE INDEX IF NOT EXISTS idx_books_call_no ON books(call_no)`,
	`CREATE INDEX IF NOT EXISTS idx_books_author ON books(author)`,
	`CREATE INDEX IF NOT EXISTS idx_recommend_history_reader ON recommend_history(reader_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reflections_book ON reflections(book_id)`,
	`CREATE INDEX IF NOT EXISTS idx_reflections_reader ON reflections(reader_id)`,
	`CREATE INDEX IF NOT EXISTS idx_user_books_title ON user_books(title)`,
}

func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	for _, query := range indexQueries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to create index: %s: %w", query, err)
		}
	}
	return nil
}
