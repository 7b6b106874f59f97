// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package wechat

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/readmark/internal/logging"
)

const conversationKeyPrefix = "conversation:"

// BadgerConversationStore keeps conversations in BadgerDB so a restart does
// not drop followers out of the binding dialogue.
type BadgerConversationStore struct {
	db *badger.DB
}

func NewBadgerConversationStore(db *badger.DB) *BadgerConversationStore {
	return &BadgerConversationStore{db: db}
}

func openBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for conversations: %w", err)
	}
	return db, nil
}

func (s *BadgerConversationStore) Get(_ context.Context, openid string) (Conversation, bool, error) {
	var c Conversation
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(conversationKeyPrefix + openid))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Conversation{}, false, nil
	}
	if err != nil {
		return Conversation{}, false, fmt.Errorf("get conversation: %w", err)
	}
	return c, true, nil
}

func (s *BadgerConversationStore) Put(_ context.Context, c Conversation) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal conversation: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(conversationKeyPrefix+c.OpenID), data)
	})
}

func (s *BadgerConversationStore) Delete(_ context.Context, openid string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete([]byte(conversationKeyPrefix + openid))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("delete conversation: %w", err)
		}
		return nil
	})
}

// Sweep scans and deletes in one transaction, so a conversation refreshed
// concurrently makes the sweep fail with a conflict instead of losing it.
func (s *BadgerConversationStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	removed := 0
	err := s.db.Update(func(txn *badger.Txn) error {
		expired, err := expiredKeys(txn, cutoff)
		if err != nil {
			return err
		}
		for _, key := range expired {
			if err := txn.Delete(key); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("sweep conversations: %w", err)
	}
	return removed, nil
}

func expiredKeys(txn *badger.Txn, cutoff time.Time) ([][]byte, error) {
	it := txn.NewIterator(badger.DefaultIteratorOptions)
	defer it.Close()

	var expired [][]byte
	prefix := []byte(conversationKeyPrefix)
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		item := it.Item()
		var c Conversation
		if err := item.Value(func(val []byte) error {
			return json.Unmarshal(val, &c)
		}); err != nil {
			// An unreadable conversation cannot be resumed, so it goes too.
			logging.Warn().Err(err).Str("key", string(item.Key())).Msg("dropping undecodable conversation")
			expired = append(expired, item.KeyCopy(nil))
			continue
		}
		if c.LastActive.Before(cutoff) {
			expired = append(expired, item.KeyCopy(nil))
		}
	}
	return expired, nil
}
