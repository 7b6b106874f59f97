// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package wechat

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"
)

// State is a follower's position in the binding dialogue.
type State string

const (
	StateIdle     State = "idle"
	StateAwaiting State = "awaiting_binding_info"
)

// Conversation is the per-openid dialogue record.
type Conversation struct {
	OpenID     string    `json:"openid"`
	State      State     `json:"state"`
	LastActive time.Time `json:"last_active"`
}

// ConversationStore persists conversations keyed by openid.
type ConversationStore interface {
	// Get returns ok=false when no conversation exists.
	Get(ctx context.Context, openid string) (c Conversation, ok bool, err error)
	Put(ctx context.Context, c Conversation) error
	Delete(ctx context.Context, openid string) error
	// Sweep removes every conversation last active before cutoff and
	// returns how many were removed.
	Sweep(ctx context.Context, cutoff time.Time) (int, error)
}

// Store kinds accepted by NewConversationStore.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

// NewConversationStore opens the configured backend. The returned closer must
// be closed on shutdown.
func NewConversationStore(kind, path string) (ConversationStore, io.Closer, error) {
	switch kind {
	case "", StoreMemory:
		return NewMemoryConversationStore(), nopCloser{}, nil
	case StoreBadger:
		db, err := openBadger(path)
		if err != nil {
			return nil, nil, err
		}
		return NewBadgerConversationStore(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown conversation store %q", kind)
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// MemoryConversationStore keeps conversations in a map.
type MemoryConversationStore struct {
	mu    sync.Mutex
	convs map[string]Conversation
}

func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{convs: make(map[string]Conversation)}
}

func (s *MemoryConversationStore) Get(_ context.Context, openid string) (Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.convs[openid]
	return c, ok, nil
}

func (s *MemoryConversationStore) Put(_ context.Context, c Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.convs[c.OpenID] = c
	return nil
}

func (s *MemoryConversationStore) Delete(_ context.Context, openid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.convs, openid)
	return nil
}

func (s *MemoryConversationStore) Sweep(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, c := range s.convs {
		if c.LastActive.Before(cutoff) {
			delete(s.convs, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored conversations.
func (s *MemoryConversationStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.convs)
}
