// Readmark - WeChat Library Reading Companion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/readmark

package opac

import (
	"context"
	"strconv"
	"time"

	"github.com/tomtom215/readmark/internal/cache"
	"github.com/tomtom215/readmark/internal/metrics"
	"github.com/tomtom215/readmark/internal/models"
)

const historyCacheCapacity = 5000

var _ HistorySource = (*CachedSource)(nil)

// CachedSource remembers complete loan histories for a fixed TTL. Failed or
// partial fetches are never stored.
type CachedSource struct {
	source  HistorySource
	entries *cache.LRU[[]models.LoanItem]
}

// NewCachedSource wraps source. A non-positive ttl returns source unchanged.
func NewCachedSource(source HistorySource, ttl time.Duration) HistorySource {
	if ttl <= 0 {
		return source
	}
	return &CachedSource{
		source:  source,
		entries: cache.NewLRU[[]models.LoanItem](historyCacheCapacity, ttl),
	}
}

func (c *CachedSource) LoanHistory(ctx context.Context, readerID string, readerType models.ReaderType, maxPages, pageSize int) ([]models.LoanItem, error) {
	key := readerID + "|" + string(readerType) + "|" + strconv.Itoa(maxPages) + "|" + strconv.Itoa(pageSize)
	if items, ok := c.entries.Get(key); ok {
		metrics.RecordOPACCacheLookup(true)
		return items, nil
	}
	metrics.RecordOPACCacheLookup(false)

	items, err := c.source.LoanHistory(ctx, readerID, readerType, maxPages, pageSize)
	if err != nil {
		return items, err
	}
	c.entries.Add(key, items)
	return items, nil
}
