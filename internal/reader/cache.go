// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package reader serves archive pages interactively.

Architecture:

  - StructureCache: a bounded, TTL-swept cache of page listings keyed by
    media ID, with single-flight population so concurrent misses share one
    listing.
  - Service: resolves a media ID to its archive, lists pages through the
    cache and streams single pages.
  - Handler: the HTTP surface (chapter info + page bytes).
*/
package reader

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// # Structure Cache

// cacheEntry is one cached page listing.
type cacheEntry struct {
	pages      []string
	lastAccess time.Time
}

// StructureCache caches ordered page listings per media ID.
//
// Bounded by maxEntries: when an insertion exceeds the bound, exactly one
// entry is evicted, the one with the oldest lastAccess (linear scan is fine
// at the configured bound). Independently, a periodic sweep drops entries
// idle for longer than the TTL. Concurrent misses on one key are collapsed
// by a single-flight group so the underlying archive is listed once.
type StructureCache struct {
	mutex      sync.Mutex
	entries    map[string]*cacheEntry
	flight     singleflight.Group
	clock      func() time.Time
	maxEntries int
	ttl        time.Duration
	sweepEvery time.Duration
	logger     *slog.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

/*
NewStructureCache builds a cache. The clock is injectable for tests; pass
time.Now in production wiring.

Parameters:
  - maxEntries: int (Entry bound; one eviction per overflowing insert)
  - ttl: time.Duration (Idle lifetime enforced by the sweep)
  - sweepEvery: time.Duration (Sweep interval)
  - clock: func() time.Time
  - logger: *slog.Logger

Returns:
  - *StructureCache: Ready for Get; call Start to enable sweeping
*/
func NewStructureCache(maxEntries int, ttl time.Duration, sweepEvery time.Duration, clock func() time.Time, logger *slog.Logger) *StructureCache {
	return &StructureCache{
		entries:    make(map[string]*cacheEntry),
		clock:      clock,
		maxEntries: maxEntries,
		ttl:        ttl,
		sweepEvery: sweepEvery,
		logger:     logger,
		stop:       make(chan struct{}),
	}
}

/*
Get returns the cached page listing for a media ID, populating on miss.

Description: A hit refreshes the entry's lastAccess. On miss the list
function runs inside a single-flight group keyed by media ID, so concurrent
misses for the same media share one execution. A failed population caches
nothing.

Parameters:
  - context: context.Context
  - mediaID: string (Cache key)
  - list: func(context.Context) ([]string, error) (Produces the ordered listing)

Returns:
  - []string: Ordered page identifiers; callers must not mutate
  - error: Whatever the list function returned
*/
func (cache *StructureCache) Get(context context.Context, mediaID string, list func(context.Context) ([]string, error)) ([]string, error) {

	cache.mutex.Lock()
	if entry, ok := cache.entries[mediaID]; ok {
		entry.lastAccess = cache.clock()
		pages := entry.pages
		cache.mutex.Unlock()
		return pages, nil
	}
	cache.mutex.Unlock()

	// Collapse concurrent misses onto one listing.
	result, err, _ := cache.flight.Do(mediaID, func() (interface{}, error) {
		pages, err := list(context)
		if err != nil {
			return nil, err
		}
		cache.insert(mediaID, pages)
		return pages, nil
	})
	if err != nil {
		return nil, err
	}

	return result.([]string), nil
}

// Invalidate drops one entry, if present.
func (cache *StructureCache) Invalidate(mediaID string) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	delete(cache.entries, mediaID)
}

// insert stores a listing and enforces the entry bound.
func (cache *StructureCache) insert(mediaID string, pages []string) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	cache.entries[mediaID] = &cacheEntry{pages: pages, lastAccess: cache.clock()}

	if len(cache.entries) <= cache.maxEntries {
		return
	}

	// Evict exactly one entry: the least recently accessed.
	var oldestKey string
	var oldestAccess time.Time
	for key, entry := range cache.entries {
		if oldestKey == "" || entry.lastAccess.Before(oldestAccess) {
			oldestKey = key
			oldestAccess = entry.lastAccess
		}
	}
	delete(cache.entries, oldestKey)
}

// Len reports the current entry count.
func (cache *StructureCache) Len() int {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	return len(cache.entries)
}

// # Lifecycle

// Start launches the periodic TTL sweep. It returns immediately.
func (cache *StructureCache) Start() {
	go func() {
		ticker := time.NewTicker(cache.sweepEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				cache.sweep()
			case <-cache.stop:
				return
			}
		}
	}()
}

// Stop terminates the sweep goroutine. Safe to call more than once.
func (cache *StructureCache) Stop() {
	cache.stopOnce.Do(func() { close(cache.stop) })
}

// sweep removes every entry idle beyond the TTL, regardless of the bound.
func (cache *StructureCache) sweep() {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()

	deadline := cache.clock().Add(-cache.ttl)
	removed := 0
	for key, entry := range cache.entries {
		if entry.lastAccess.Before(deadline) {
			delete(cache.entries, key)
			removed++
		}
	}

	if removed > 0 {
		cache.logger.Debug("structure_cache_swept",
			slog.Int("removed", removed),
			slog.Int("remaining", len(cache.entries)),
		)
	}
}
