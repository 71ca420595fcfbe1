package search

import (
	"math"
	"sync"
	"time"
)

// CacheConfig tunes the query result cache.
type CacheConfig struct {
	// MaxEntries is the overflow threshold.
	MaxEntries int
	// TTL expires entries regardless of use.
	TTL time.Duration
	// FrequencyWeight scales the access-count term of the eviction score.
	FrequencyWeight float64
	// RecencyHalfLife controls the decay of the recency term.
	RecencyHalfLife time.Duration
}

// DefaultCacheConfig returns the production cache settings.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxEntries:      64,
		TTL:             15 * time.Minute,
		FrequencyWeight: 0.5,
		RecencyHalfLife: 5 * time.Minute,
	}
}

type cacheEntry struct {
	results      []Result
	createdAt    time.Time
	lastAccessAt time.Time
	accessCount  int
}

// Cache is a process-lifetime query cache with TTL expiry and, on
// overflow, eviction of the entry with the lowest combined
// frequency-plus-recency score. Insertion order plays no part: an entry
// used often and recently survives longest.
type Cache struct {
	cfg     CacheConfig
	mu      sync.Mutex
	entries map[string]*cacheEntry
	now     func() time.Time
}

// NewCache creates a cache.
func NewCache(cfg CacheConfig) *Cache {
	def := DefaultCacheConfig()
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = def.MaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.FrequencyWeight <= 0 {
		cfg.FrequencyWeight = def.FrequencyWeight
	}
	if cfg.RecencyHalfLife <= 0 {
		cfg.RecencyHalfLife = def.RecencyHalfLife
	}
	return &Cache{
		cfg:     cfg,
		entries: make(map[string]*cacheEntry),
		now:     time.Now,
	}
}

// Get returns cached results for the normalized query, updating access
// stats. Expired entries are removed and miss.
func (c *Cache) Get(query string) ([]Result, bool) {
	key := NormalizeQuery(query)
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	now := c.now()
	if now.Sub(e.createdAt) > c.cfg.TTL {
		delete(c.entries, key)
		return nil, false
	}
	e.lastAccessAt = now
	e.accessCount++
	return e.results, true
}

// Put stores results for the query. Empty result sets are never cached.
// When the cache is full, the lowest-scored entry is evicted first.
func (c *Cache) Put(query string, results []Result) {
	if len(results) == 0 {
		return
	}
	key := NormalizeQuery(query)
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.cfg.MaxEntries {
		c.evictLowest(now)
	}
	c.entries[key] = &cacheEntry{
		results:      results,
		createdAt:    now,
		lastAccessAt: now,
		accessCount:  1,
	}
}

// Len returns the number of live entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// score combines weighted access frequency with an exponentially decayed
// recency term.
func (c *Cache) score(e *cacheEntry, now time.Time) float64 {
	age := now.Sub(e.lastAccessAt).Seconds()
	half := c.cfg.RecencyHalfLife.Seconds()
	recency := math.Pow(0.5, age/half)
	return float64(e.accessCount)*c.cfg.FrequencyWeight + recency
}

func (c *Cache) evictLowest(now time.Time) {
	var worstKey string
	worstScore := math.MaxFloat64
	for key, e := range c.entries {
		// TTL-expired entries are free wins.
		if now.Sub(e.createdAt) > c.cfg.TTL {
			delete(c.entries, key)
			return
		}
		if s := c.score(e, now); s < worstScore {
			worstKey, worstScore = key, s
		}
	}
	if worstKey != "" {
		delete(c.entries, worstKey)
	}
}
