package search

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCache(maxEntries int) (*Cache, *time.Time) {
	c := NewCache(CacheConfig{
		MaxEntries:      maxEntries,
		TTL:             15 * time.Minute,
		FrequencyWeight: 0.5,
		RecencyHalfLife: 5 * time.Minute,
	})
	now := time.Now()
	c.now = func() time.Time { return now }
	return c, &now
}

func oneResult(tag string) []Result {
	return []Result{{Title: tag, URL: "https://example.com/" + tag}}
}

func TestCacheHitUpdatesAccessStats(t *testing.T) {
	c, _ := testCache(8)
	c.Put("go channels", oneResult("a"))

	got, ok := c.Get("  GO   Channels ")
	require.True(t, ok, "normalized key should hit")
	assert.Equal(t, "a", got[0].Title)
}

func TestCacheTTLExpiry(t *testing.T) {
	c, now := testCache(8)
	c.Put("stale query", oneResult("a"))

	*now = now.Add(16 * time.Minute)
	_, ok := c.Get("stale query")
	assert.False(t, ok, "entry past TTL must miss")
	assert.Equal(t, 0, c.Len())
}

func TestCacheNeverStoresEmptyResults(t *testing.T) {
	c, _ := testCache(8)
	c.Put("nothing found", nil)
	assert.Equal(t, 0, c.Len())
}

func TestOverflowEvictsExactlyOneLowestScored(t *testing.T) {
	c, now := testCache(4)

	for i := 0; i < 4; i++ {
		c.Put(fmt.Sprintf("query %d", i), oneResult(fmt.Sprintf("r%d", i)))
		*now = now.Add(time.Second)
	}

	// Make query 2 both frequent and recent.
	for i := 0; i < 5; i++ {
		_, ok := c.Get("query 2")
		require.True(t, ok)
	}
	// Touch query 3 once so query 0 and 1 are the cold candidates.
	c.Get("query 3")

	*now = now.Add(time.Minute)
	c.Put("query 4", oneResult("r4"))

	assert.Equal(t, 4, c.Len(), "overflow insert evicts exactly one entry")
	_, hot := c.Get("query 2")
	assert.True(t, hot, "frequently and recently used entry must survive")
	_, coldest := c.Get("query 0")
	assert.False(t, coldest, "lowest-scored entry is the one evicted")
}

func TestEvictionIsScoreBasedNotInsertionOrder(t *testing.T) {
	c, now := testCache(3)

	c.Put("oldest", oneResult("a"))
	*now = now.Add(time.Second)
	c.Put("middle", oneResult("b"))
	*now = now.Add(time.Second)
	c.Put("newest", oneResult("c"))

	// Heavy use of the oldest entry outranks pure insertion age.
	for i := 0; i < 10; i++ {
		c.Get("oldest")
	}

	*now = now.Add(time.Minute)
	c.Put("overflow", oneResult("d"))

	_, ok := c.Get("oldest")
	assert.True(t, ok, "heavily used oldest entry survives overflow")
}

func TestRepeatedOverflowEvictsOnePerInsertion(t *testing.T) {
	c, now := testCache(4)
	for i := 0; i < 20; i++ {
		c.Put(fmt.Sprintf("q%d", i), oneResult("x"))
		*now = now.Add(time.Second)
		assert.LessOrEqual(t, c.Len(), 4)
	}
	assert.Equal(t, 4, c.Len())
}
