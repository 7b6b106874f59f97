// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

/*
Package cache provides a bounded, thread-safe LRU cache with TTL expiry.

Readmark uses it in two places:
  - wechat.Handler drops webhook deliveries it has already handled. The
    platform retries a message when the reply takes longer than five seconds.
  - opac.CachedSource keeps a reader's loan history for a few minutes so a
    follower tapping "recommend" repeatedly does not hit the library API each
    time.

# Usage Example

	seen := cache.NewLRU[struct{}](10000, time.Minute)
	if seen.Seen(msgKey) {
	    return // duplicate delivery
	}

	history := cache.NewLRU[[]models.LoanItem](5000, 10*time.Minute)
	history.Add(card, items)
	if items, ok := history.Get(card); ok {
	    // use cached items
	}

# Thread Safety

All methods are safe for concurrent use. A single mutex guards the map and
the recency list; Get mutates recency, so there is no read lock.
*/
package cache
