package service

import (
	"container/list"
	"context"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// CacheService provides in-memory caching with TTL, LRU eviction and
// invalidation support. Entry count is bounded: when the limit is reached
// the least recently used entry is evicted.
type CacheService struct {
	mu         sync.Mutex
	cache      map[string]*list.Element
	order      *list.List // front = most recently used
	maxEntries int
	defaultTTL time.Duration

	hits   uint64
	misses uint64
}

type cacheEntry struct {
	key       string
	data      interface{}
	expiresAt time.Time
}

// CacheStats is a snapshot of cache usage counters.
type CacheStats struct {
	Entries int     `json:"entries"`
	Hits    uint64  `json:"hits"`
	Misses  uint64  `json:"misses"`
	HitRate float64 `json:"hit_rate"`
}

// NewCacheService creates a new cache service. maxEntries <= 0 falls back to 1000.
func NewCacheService(maxEntries int, defaultTTL time.Duration) *CacheService {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if defaultTTL <= 0 {
		defaultTTL = 5 * time.Minute
	}

	cs := &CacheService{
		cache:      make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		defaultTTL: defaultTTL,
	}

	// Start background cleanup goroutine
	go cs.cleanup()

	return cs
}

// Get retrieves a value from cache. A hit refreshes the entry's recency.
// Expired entries are evicted lazily on access and counted as misses.
func (cs *CacheService) Get(key string) (interface{}, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	elem, exists := cs.cache[key]
	if !exists {
		cs.misses++
		return nil, false
	}

	entry := elem.Value.(*cacheEntry)
	if time.Now().After(entry.expiresAt) {
		cs.removeElement(elem)
		cs.misses++
		return nil, false
	}

	cs.order.MoveToFront(elem)
	cs.hits++
	return entry.data, true
}

// Has reports whether a live entry exists without touching recency or counters.
func (cs *CacheService) Has(key string) bool {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	elem, exists := cs.cache[key]
	if !exists {
		return false
	}
	return !time.Now().After(elem.Value.(*cacheEntry).expiresAt)
}

// Set stores a value in cache with TTL. ttl <= 0 uses the default TTL.
func (cs *CacheService) Set(key string, value interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.set(key, value, ttl)
}

// SetMany stores several values under one lock acquisition.
func (cs *CacheService) SetMany(values map[string]interface{}, ttl time.Duration) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key, value := range values {
		cs.set(key, value, ttl)
	}
}

func (cs *CacheService) set(key string, value interface{}, ttl time.Duration) {
	if ttl <= 0 {
		ttl = cs.defaultTTL
	}
	expiresAt := time.Now().Add(ttl)

	if elem, exists := cs.cache[key]; exists {
		entry := elem.Value.(*cacheEntry)
		entry.data = value
		entry.expiresAt = expiresAt
		cs.order.MoveToFront(elem)
		return
	}

	for len(cs.cache) >= cs.maxEntries {
		oldest := cs.order.Back()
		if oldest == nil {
			break
		}
		cs.removeElement(oldest)
	}

	elem := cs.order.PushFront(&cacheEntry{key: key, data: value, expiresAt: expiresAt})
	cs.cache[key] = elem
}

// Delete removes a key from cache.
func (cs *CacheService) Delete(key string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if elem, exists := cs.cache[key]; exists {
		cs.removeElement(elem)
	}
}

// InvalidateByPrefix removes all keys with the given prefix.
func (cs *CacheService) InvalidateByPrefix(prefix string) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	for key, elem := range cs.cache {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			cs.removeElement(elem)
		}
	}
}

// InvalidatePattern removes all keys matching the regular expression.
// Returns the number of removed entries.
func (cs *CacheService) InvalidatePattern(pattern string) (int, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return 0, err
	}

	cs.mu.Lock()
	defer cs.mu.Unlock()

	removed := 0
	for key, elem := range cs.cache {
		if re.MatchString(key) {
			cs.removeElement(elem)
			removed++
		}
	}
	return removed, nil
}

// Stats returns a snapshot of the usage counters.
func (cs *CacheService) Stats() CacheStats {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	stats := CacheStats{
		Entries: len(cs.cache),
		Hits:    cs.hits,
		Misses:  cs.misses,
	}
	if total := cs.hits + cs.misses; total > 0 {
		stats.HitRate = float64(cs.hits) / float64(total)
	}
	return stats
}

// Flush drops all entries, keeping the counters.
func (cs *CacheService) Flush() {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	cs.cache = make(map[string]*list.Element)
	cs.order.Init()
}

// removeElement must be called with the lock held.
func (cs *CacheService) removeElement(elem *list.Element) {
	entry := elem.Value.(*cacheEntry)
	cs.order.Remove(elem)
	delete(cs.cache, entry.key)
}

// InvalidateListingCache removes cache entries related to a listing,
// including every browse page that might contain it.
func (cs *CacheService) InvalidateListingCache(listingID uuid.UUID) {
	cs.InvalidateByPrefix("listing:" + listingID.String())
	cs.InvalidateByPrefix("bids:" + listingID.String())
	cs.InvalidateByPrefix("listings:")
}

// InvalidateUserCache removes all cache entries for a specific user.
func (cs *CacheService) InvalidateUserCache(userID uuid.UUID) {
	cs.InvalidateByPrefix("profile:" + userID.String())
	cs.InvalidateByPrefix("rating:" + userID.String())
	cs.InvalidateByPrefix("seller_bids:" + userID.String())
	cs.InvalidateByPrefix("favorites:" + userID.String())
}

// cleanup removes expired entries periodically.
func (cs *CacheService) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cs.mu.Lock()
		now := time.Now()
		for _, elem := range cs.cache {
			if now.After(elem.Value.(*cacheEntry).expiresAt) {
				cs.removeElement(elem)
			}
		}
		cs.mu.Unlock()
	}
}

// Cache key generators
func ListingCacheKey(listingID uuid.UUID) string {
	return "listing:" + listingID.String()
}

func ListingsPageCacheKey(filter string, limit, offset int) string {
	return "listings:" + filter + ":" + strconv.Itoa(limit) + ":" + strconv.Itoa(offset)
}

func BidsCacheKey(listingID uuid.UUID) string {
	return "bids:" + listingID.String()
}

func SellerBidsCacheKey(sellerID uuid.UUID, limit, offset int) string {
	return "seller_bids:" + sellerID.String() + ":" + strconv.Itoa(limit) + ":" + strconv.Itoa(offset)
}

func ProfileCacheKey(userID uuid.UUID) string {
	return "profile:" + userID.String()
}

// GetOrSet retrieves a value from cache or computes it if not found.
func (cs *CacheService) GetOrSet(
	ctx context.Context,
	key string,
	ttl time.Duration,
	fn func() (interface{}, error),
) (interface{}, error) {
	// Try to get from cache
	if value, found := cs.Get(key); found {
		return value, nil
	}

	// Compute value
	value, err := fn()
	if err != nil {
		return nil, err
	}

	// Store in cache
	cs.Set(key, value, ttl)

	return value, nil
}
