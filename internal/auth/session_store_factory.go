// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package auth

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// SessionStoreType defines the type of session storage backend.
type SessionStoreType string

const (
	// SessionStoreMemory uses in-memory storage (default, not persistent).
	SessionStoreMemory SessionStoreType = "memory"

	// SessionStoreBadger uses BadgerDB for persistent session storage.
	SessionStoreBadger SessionStoreType = "badger"
)

// SessionStoreFactory creates session stores based on configuration.
type SessionStoreFactory struct {
	db *badger.DB
}

// NewSessionStoreFactory creates a new session store factory.
// If storeType is "badger", it opens a BadgerDB at the given path; an empty
// path opens an in-memory Badger instance.
// If storeType is "memory" or empty, no database is opened.
func NewSessionStoreFactory(storeType SessionStoreType, path string) (*SessionStoreFactory, error) {
	factory := &SessionStoreFactory{}

	switch storeType {
	case "", SessionStoreMemory:
	case SessionStoreBadger:
		opts := badger.DefaultOptions(path)
		if path == "" {
			opts = opts.WithInMemory(true)
		}
		opts.Logger = nil // Suppress BadgerDB logs

		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger db for sessions: %w", err)
		}
		factory.db = db
	default:
		return nil, fmt.Errorf("unknown session store %q", storeType)
	}

	return factory, nil
}

// CreateStore creates a SessionStore based on the factory's configuration.
func (f *SessionStoreFactory) CreateStore() SessionStore {
	if f.db != nil {
		return NewBadgerSessionStore(f.db)
	}
	return NewMemorySessionStore()
}

// Close closes the underlying BadgerDB if one was opened.
func (f *SessionStoreFactory) Close() error {
	if f.db != nil {
		return f.db.Close()
	}
	return nil
}
