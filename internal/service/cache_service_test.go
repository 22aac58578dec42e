package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestCacheService_SetGet(t *testing.T) {
	cache := NewCacheService(10, time.Minute)

	cache.Set("key", "value", 0)

	got, ok := cache.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "value", got)

	_, ok = cache.Get("missing")
	assert.False(t, ok)
}

func TestCacheService_TTLExpiry(t *testing.T) {
	cache := NewCacheService(10, time.Minute)

	cache.Set("short", "value", 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	_, ok := cache.Get("short")
	assert.False(t, ok)
	assert.False(t, cache.Has("short"))
}

func TestCacheService_LRUEviction(t *testing.T) {
	cache := NewCacheService(3, time.Minute)

	cache.Set("a", 1, 0)
	cache.Set("b", 2, 0)
	cache.Set("c", 3, 0)

	// Четвёртая запись вытесняет самую старую.
	cache.Set("d", 4, 0)

	_, ok := cache.Get("a")
	assert.False(t, ok)
	assert.True(t, cache.Has("b"))
	assert.True(t, cache.Has("c"))
	assert.True(t, cache.Has("d"))
}

func TestCacheService_GetRefreshesRecency(t *testing.T) {
	cache := NewCacheService(3, time.Minute)

	cache.Set("a", 1, 0)
	cache.Set("b", 2, 0)
	cache.Set("c", 3, 0)

	// Обращение к "a" делает кандидатом на вытеснение "b".
	_, _ = cache.Get("a")
	cache.Set("d", 4, 0)

	assert.True(t, cache.Has("a"))
	_, ok := cache.Get("b")
	assert.False(t, ok)
}

func TestCacheService_SetExistingUpdates(t *testing.T) {
	cache := NewCacheService(10, time.Minute)

	cache.Set("key", "old", 0)
	cache.Set("key", "new", 0)

	got, ok := cache.Get("key")
	assert.True(t, ok)
	assert.Equal(t, "new", got)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Entries)
}

func TestCacheService_Delete(t *testing.T) {
	cache := NewCacheService(10, time.Minute)

	cache.Set("key", "value", 0)
	cache.Delete("key")

	_, ok := cache.Get("key")
	assert.False(t, ok)
}

func TestCacheService_InvalidateByPrefix(t *testing.T) {
	cache := NewCacheService(10, time.Minute)

	cache.Set("listings:all:20:0", 1, 0)
	cache.Set("listings:books:20:0", 2, 0)
	cache.Set("profile:abc", 3, 0)

	cache.InvalidateByPrefix("listings:")

	assert.False(t, cache.Has("listings:all:20:0"))
	assert.False(t, cache.Has("listings:books:20:0"))
	assert.True(t, cache.Has("profile:abc"))
}

func TestCacheService_InvalidatePattern(t *testing.T) {
	cache := NewCacheService(10, time.Minute)

	cache.Set("bids:111", 1, 0)
	cache.Set("bids:222", 2, 0)
	cache.Set("listing:111", 3, 0)

	removed, err := cache.InvalidatePattern(`^bids:`)
	assert.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.True(t, cache.Has("listing:111"))

	_, err = cache.InvalidatePattern(`[broken`)
	assert.Error(t, err)
}

func TestCacheService_InvalidateListingCache(t *testing.T) {
	cache := NewCacheService(10, time.Minute)
	listingID := uuid.New()

	cache.Set(ListingCacheKey(listingID), 1, 0)
	cache.Set(BidsCacheKey(listingID), 2, 0)
	cache.Set(ListingsPageCacheKey("all", 20, 0), 3, 0)
	cache.Set(ProfileCacheKey(uuid.New()), 4, 0)

	cache.InvalidateListingCache(listingID)

	assert.False(t, cache.Has(ListingCacheKey(listingID)))
	assert.False(t, cache.Has(BidsCacheKey(listingID)))
	assert.False(t, cache.Has(ListingsPageCacheKey("all", 20, 0)))
	assert.Equal(t, 1, cache.Stats().Entries)
}

func TestCacheService_Stats(t *testing.T) {
	cache := NewCacheService(10, time.Minute)

	cache.Set("key", "value", 0)
	cache.Get("key")
	cache.Get("key")
	cache.Get("missing")

	stats := cache.Stats()
	assert.Equal(t, uint64(2), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 2.0/3.0, stats.HitRate, 0.001)
}

func TestCacheService_Flush(t *testing.T) {
	cache := NewCacheService(10, time.Minute)

	cache.Set("a", 1, 0)
	cache.Set("b", 2, 0)
	cache.Flush()

	assert.Equal(t, 0, cache.Stats().Entries)
	assert.False(t, cache.Has("a"))
}

func TestCacheService_GetOrSet(t *testing.T) {
	cache := NewCacheService(10, time.Minute)

	calls := 0
	compute := func() (interface{}, error) {
		calls++
		return "computed", nil
	}

	got, err := cache.GetOrSet(context.Background(), "key", time.Minute, compute)
	assert.NoError(t, err)
	assert.Equal(t, "computed", got)

	got, err = cache.GetOrSet(context.Background(), "key", time.Minute, compute)
	assert.NoError(t, err)
	assert.Equal(t, "computed", got)
	assert.Equal(t, 1, calls)
}
