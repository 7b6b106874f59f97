// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package wechat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
)

func conversationStores(t *testing.T) map[string]ConversationStore {
	t.Helper()
	db, err := openBadger("")
	if err != nil {
		t.Fatalf("openBadger() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return map[string]ConversationStore{
		StoreMemory: NewMemoryConversationStore(),
		StoreBadger: NewBadgerConversationStore(db),
	}
}

func TestConversationStore_Contract(t *testing.T) {
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	for name, store := range conversationStores(t) {
		t.Run(name, func(t *testing.T) {
			if _, ok, err := store.Get(ctx, "oMissing"); err != nil || ok {
				t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
			}

			want := Conversation{OpenID: "oA", State: StateAwaiting, LastActive: base}
			if err := store.Put(ctx, want); err != nil {
				t.Fatalf("Put() error: %v", err)
			}
			got, ok, err := store.Get(ctx, "oA")
			if err != nil || !ok {
				t.Fatalf("Get() = ok %v, err %v", ok, err)
			}
			if got.State != StateAwaiting || !got.LastActive.Equal(base) {
				t.Errorf("Get() = %+v, want %+v", got, want)
			}

			if err := store.Delete(ctx, "oA"); err != nil {
				t.Fatalf("Delete() error: %v", err)
			}
			if _, ok, _ := store.Get(ctx, "oA"); ok {
				t.Error("conversation still present after Delete()")
			}
			if err := store.Delete(ctx, "oA"); err != nil {
				t.Errorf("Delete(missing) error: %v", err)
			}
		})
	}
}

func TestConversationStore_Sweep(t *testing.T) {
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	for name, store := range conversationStores(t) {
		t.Run(name, func(t *testing.T) {
			for id, age := range map[string]time.Duration{
				"oOld":    31 * time.Minute,
				"oOlder":  2 * time.Hour,
				"oRecent": 5 * time.Minute,
				"oEdge":   30 * time.Minute,
			} {
				c := Conversation{OpenID: id, State: StateIdle, LastActive: base.Add(-age)}
				if err := store.Put(ctx, c); err != nil {
					t.Fatalf("Put(%s) error: %v", id, err)
				}
			}

			n, err := store.Sweep(ctx, base.Add(-30*time.Minute))
			if err != nil {
				t.Fatalf("Sweep() error: %v", err)
			}
			if n != 2 {
				t.Errorf("Sweep() evicted %d, want 2", n)
			}
			for id, present := range map[string]bool{"oOld": false, "oOlder": false, "oRecent": true, "oEdge": true} {
				if _, ok, _ := store.Get(ctx, id); ok != present {
					t.Errorf("%s present = %v, want %v", id, ok, present)
				}
			}
		})
	}
}

func TestBadgerConversationStore_SweepDropsUndecodable(t *testing.T) {
	db, err := openBadger("")
	if err != nil {
		t.Fatalf("openBadger() error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	store := NewBadgerConversationStore(db)
	ctx := context.Background()
	base := time.Unix(1700000000, 0)

	if err := db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(conversationKeyPrefix+"oBroken"), []byte("{not json"))
	}); err != nil {
		t.Fatalf("seed corrupt value: %v", err)
	}
	if err := store.Put(ctx, Conversation{OpenID: "oRecent", State: StateAwaiting, LastActive: base}); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	for i := 0; i < 2; i++ {
		n, err := store.Sweep(ctx, base.Add(-30*time.Minute))
		if err != nil {
			t.Fatalf("Sweep() #%d error: %v", i+1, err)
		}
		if want := 1 - i; n != want {
			t.Errorf("Sweep() #%d evicted %d, want %d", i+1, n, want)
		}
	}

	if _, ok, err := store.Get(ctx, "oRecent"); err != nil || !ok {
		t.Errorf("Get(oRecent) = ok %v, err %v, want kept", ok, err)
	}
	err = db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(conversationKeyPrefix + "oBroken"))
		return err
	})
	if !errors.Is(err, badger.ErrKeyNotFound) {
		t.Errorf("corrupt conversation still stored: %v", err)
	}
}

func TestNewConversationStore(t *testing.T) {
	store, closer, err := NewConversationStore(StoreMemory, "")
	if err != nil {
		t.Fatalf("NewConversationStore(memory) error: %v", err)
	}
	if _, ok := store.(*MemoryConversationStore); !ok {
		t.Errorf("store = %T, want *MemoryConversationStore", store)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	store, closer, err = NewConversationStore(StoreBadger, t.TempDir())
	if err != nil {
		t.Fatalf("NewConversationStore(badger) error: %v", err)
	}
	if _, ok := store.(*BadgerConversationStore); !ok {
		t.Errorf("store = %T, want *BadgerConversationStore", store)
	}
	if err := closer.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}

	if _, _, err := NewConversationStore("redis", ""); err == nil {
		t.Error("NewConversationStore(redis) expected error")
	}
}
