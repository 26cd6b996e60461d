// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package reader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when told to, making access recency deterministic.
type fakeClock struct {
	mutex sync.Mutex
	now   time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (clock *fakeClock) Now() time.Time {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	return clock.now
}

func (clock *fakeClock) Advance(d time.Duration) {
	clock.mutex.Lock()
	defer clock.mutex.Unlock()
	clock.now = clock.now.Add(d)
}

func newTestCache(maxEntries int, ttl time.Duration, clock *fakeClock) *StructureCache {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewStructureCache(maxEntries, ttl, time.Hour, clock.Now, logger)
}

func staticListing(pages ...string) func(context.Context) ([]string, error) {
	return func(context.Context) ([]string, error) { return pages, nil }
}

/*
TestStructureCache_HitAndMiss verifies population on miss and that a hit
serves the stored listing without re-listing.
*/
func TestStructureCache_HitAndMiss(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(10, time.Hour, clock)

	calls := 0
	list := func(context.Context) ([]string, error) {
		calls++
		return []string{"001.jpg", "002.jpg"}, nil
	}

	first, err := cache.Get(context.Background(), "media-1", list)
	require.NoError(t, err)
	assert.Equal(t, []string{"001.jpg", "002.jpg"}, first)

	second, err := cache.Get(context.Background(), "media-1", list)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

/*
TestStructureCache_FailedPopulationCachesNothing verifies that a listing
error leaves the cache empty so the next call retries.
*/
func TestStructureCache_FailedPopulationCachesNothing(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(10, time.Hour, clock)

	_, err := cache.Get(context.Background(), "media-1", func(context.Context) ([]string, error) {
		return nil, errors.New("archive is corrupt")
	})
	require.Error(t, err)
	assert.Equal(t, 0, cache.Len())

	pages, err := cache.Get(context.Background(), "media-1", staticListing("001.jpg"))
	require.NoError(t, err)
	assert.Equal(t, []string{"001.jpg"}, pages)
}

/*
TestStructureCache_EvictsSingleOldest verifies the bound: one overflowing
insert evicts exactly one entry, and never one more recently accessed than
an entry that remains.
*/
func TestStructureCache_EvictsSingleOldest(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(3, time.Hour, clock)

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("media-%d", i)
		_, err := cache.Get(context.Background(), key, staticListing("001.jpg"))
		require.NoError(t, err)
		clock.Advance(time.Minute)
	}

	// Touch media-0 so media-1 becomes the least recently accessed.
	_, err := cache.Get(context.Background(), "media-0", staticListing("001.jpg"))
	require.NoError(t, err)
	clock.Advance(time.Minute)

	_, err = cache.Get(context.Background(), "media-3", staticListing("001.jpg"))
	require.NoError(t, err)

	assert.Equal(t, 3, cache.Len())

	// media-1 must be the evicted one: it alone re-lists.
	calls := map[string]int{}
	counting := func(key string) func(context.Context) ([]string, error) {
		return func(context.Context) ([]string, error) {
			calls[key]++
			return []string{"001.jpg"}, nil
		}
	}
	for _, key := range []string{"media-0", "media-1", "media-2", "media-3"} {
		_, err := cache.Get(context.Background(), key, counting(key))
		require.NoError(t, err)
	}

	assert.Equal(t, 1, calls["media-1"])
	assert.Zero(t, calls["media-0"])
	assert.Zero(t, calls["media-2"])
	assert.Zero(t, calls["media-3"])
}

/*
TestStructureCache_SweepDropsIdleEntries verifies TTL sweeping honors
lastAccess, not insertion time.
*/
func TestStructureCache_SweepDropsIdleEntries(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(10, 30*time.Minute, clock)

	_, err := cache.Get(context.Background(), "idle", staticListing("001.jpg"))
	require.NoError(t, err)
	_, err = cache.Get(context.Background(), "busy", staticListing("001.jpg"))
	require.NoError(t, err)

	clock.Advance(20 * time.Minute)
	_, err = cache.Get(context.Background(), "busy", staticListing("001.jpg"))
	require.NoError(t, err)

	clock.Advance(15 * time.Minute)
	cache.sweep()

	assert.Equal(t, 1, cache.Len())

	calls := 0
	_, err = cache.Get(context.Background(), "busy", func(context.Context) ([]string, error) {
		calls++
		return []string{"001.jpg"}, nil
	})
	require.NoError(t, err)
	assert.Zero(t, calls)
}

/*
TestStructureCache_SingleFlight verifies concurrent misses on one key share
a single listing execution.
*/
func TestStructureCache_SingleFlight(t *testing.T) {
	clock := newFakeClock()
	cache := newTestCache(10, time.Hour, clock)

	var mutex sync.Mutex
	calls := 0
	gate := make(chan struct{})

	list := func(context.Context) ([]string, error) {
		mutex.Lock()
		calls++
		mutex.Unlock()
		<-gate
		return []string{"001.jpg"}, nil
	}

	var group sync.WaitGroup
	for i := 0; i < 8; i++ {
		group.Add(1)
		go func() {
			defer group.Done()
			pages, err := cache.Get(context.Background(), "media-1", list)
			assert.NoError(t, err)
			assert.Equal(t, []string{"001.jpg"}, pages)
		}()
	}

	// Give the goroutines time to pile onto the flight group.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	group.Wait()

	assert.Equal(t, 1, calls)
}
