// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package authz

import (
	"sync"
	"time"
)

// enforcementCache caches authorization decisions. The key space is a handful
// of role/object/action triples, so expired items are replaced on write
// rather than swept.
type enforcementCache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[cacheKey]cacheItem
}

type cacheKey struct {
	role, object, action string
}

type cacheItem struct {
	allowed   bool
	expiresAt time.Time
}

func newEnforcementCache(ttl time.Duration) *enforcementCache {
	return &enforcementCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[cacheKey]cacheItem),
	}
}

func (c *enforcementCache) get(role, object, action string) (allowed, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, found := c.items[cacheKey{role, object, action}]
	if !found || c.now().After(item.expiresAt) {
		return false, false
	}
	return item.allowed, true
}

func (c *enforcementCache) set(role, object, action string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheKey{role, object, action}] = cacheItem{
		allowed:   allowed,
		expiresAt: c.now().Add(c.ttl),
	}
}

func (c *enforcementCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
