// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage
const (
	sessionKeyPrefix       = "session:"
	sessionOpenIDKeyPrefix = "session_openid:"
)

// BadgerSessionStore implements SessionStore using BadgerDB for durable storage.
// Entries carry a Badger TTL matching the session expiry, so the value log
// reclaims abandoned sessions even if CleanupExpired never runs.
type BadgerSessionStore struct {
	db *badger.DB
}

// NewBadgerSessionStore creates a new BadgerDB-backed session store.
func NewBadgerSessionStore(db *badger.DB) *BadgerSessionStore {
	return &BadgerSessionStore{db: db}
}

func openIDKey(openid, id string) []byte {
	return []byte(sessionOpenIDKeyPrefix + openid + ":" + id)
}

// setSession writes the session and its openid mapping inside txn.
func setSession(txn *badger.Txn, session *Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	ttl := time.Until(session.ExpiresAt)
	if ttl <= 0 {
		ttl = time.Second
	}

	if err := txn.SetEntry(badger.NewEntry([]byte(sessionKeyPrefix+session.ID), data).WithTTL(ttl)); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	if err := txn.SetEntry(badger.NewEntry(openIDKey(session.OpenID, session.ID), []byte(session.ID)).WithTTL(ttl)); err != nil {
		return fmt.Errorf("set openid mapping: %w", err)
	}
	return nil
}

func getSession(txn *badger.Txn, id string) (*Session, error) {
	item, err := txn.Get([]byte(sessionKeyPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	var session Session
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &session)
	}); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func deleteSession(txn *badger.Txn, session *Session) error {
	if err := txn.Delete([]byte(sessionKeyPrefix + session.ID)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if err := txn.Delete(openIDKey(session.OpenID, session.ID)); err != nil {
		return fmt.Errorf("delete openid mapping: %w", err)
	}
	return nil
}

// Create stores a new session.
func (s *BadgerSessionStore) Create(_ context.Context, session *Session) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return setSession(txn, session)
	})
}

// Get retrieves a session by ID.
func (s *BadgerSessionStore) Get(_ context.Context, id string) (*Session, error) {
	var session *Session
	err := s.db.View(func(txn *badger.Txn) error {
		var err error
		session, err = getSession(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Check expiration
	if session.IsExpired() {
		return nil, ErrSessionExpired
	}
	return session, nil
}

// Delete removes a session by ID.
func (s *BadgerSessionStore) Delete(_ context.Context, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		session, err := getSession(txn, id)
		if errors.Is(err, ErrSessionNotFound) {
			return nil // Already deleted
		}
		if err != nil {
			return err
		}
		return deleteSession(txn, session)
	})
}

// DeleteByOpenID removes all sessions for an openid.
func (s *BadgerSessionStore) DeleteByOpenID(_ context.Context, openid string) (int, error) {
	count := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		ids, err := sessionIDsForOpenID(txn, openid)
		if err != nil {
			return err
		}
		for _, id := range ids {
			session, err := getSession(txn, id)
			if errors.Is(err, ErrSessionNotFound) {
				// Mapping outlived the session; drop it.
				if err := txn.Delete(openIDKey(openid, id)); err != nil {
					return err
				}
				continue
			}
			if err != nil {
				return err
			}
			if err := deleteSession(txn, session); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete openid sessions: %w", err)
	}
	return count, nil
}

func sessionIDsForOpenID(txn *badger.Txn, openid string) ([]string, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var ids []string
	prefix := []byte(sessionOpenIDKeyPrefix + openid + ":")
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := it.Item().Value(func(val []byte) error {
			ids = append(ids, string(val))
			return nil
		}); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// Touch updates the session's last accessed time and rewrites its TTL.
func (s *BadgerSessionStore) Touch(_ context.Context, id string, newExpiry time.Time) error {
	return s.db.Update(func(txn *badger.Txn) error {
		session, err := getSession(txn, id)
		if err != nil {
			return err
		}
		session.LastAccessedAt = time.Now()
		session.ExpiresAt = newExpiry
		return setSession(txn, session)
	})
}

// CleanupExpired removes sessions past their expiry that Badger has not yet
// dropped through TTL.
func (s *BadgerSessionStore) CleanupExpired(_ context.Context) (int, error) {
	count := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		expired, err := expiredSessions(txn)
		if err != nil {
			return err
		}
		for _, session := range expired {
			if err := deleteSession(txn, session); err != nil {
				return err
			}
		}
		count = len(expired)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	return count, nil
}

func expiredSessions(txn *badger.Txn) ([]*Session, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var expired []*Session
	prefix := []byte(sessionKeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		var session Session
		if err := it.Item().Value(func(val []byte) error {
			return json.Unmarshal(val, &session)
		}); err != nil {
			return nil, err
		}
		if session.IsExpired() {
			expired = append(expired, &session)
		}
	}
	return expired, nil
}
