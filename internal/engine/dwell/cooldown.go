package dwell

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// CooldownRegistry blocks repeat resolves for the same physical region or
// anchor element until a window elapses. It is independent of the state
// machine: a reset or re-anchor never clears an active cooldown.
type CooldownRegistry struct {
	mu      sync.Mutex
	window  time.Duration
	bucket  float64
	entries map[string]time.Time
}

// DefaultCooldown is the production repeat-suppression window.
const DefaultCooldown = 30 * time.Second

// DefaultRegionBucket quantizes resolve points into grid cells for keying.
const DefaultRegionBucket = 96.0

// NewCooldownRegistry creates a registry with the given window and region
// bucket size.
func NewCooldownRegistry(window time.Duration, bucket float64) *CooldownRegistry {
	if window <= 0 {
		window = DefaultCooldown
	}
	if bucket <= 0 {
		bucket = DefaultRegionBucket
	}
	return &CooldownRegistry{
		window:  window,
		bucket:  bucket,
		entries: make(map[string]time.Time),
	}
}

// RegionKey quantizes a point into a stable region key.
func (r *CooldownRegistry) RegionKey(x, y float64) string {
	return fmt.Sprintf("region:%d:%d", int(math.Floor(x/r.bucket)), int(math.Floor(y/r.bucket)))
}

// Allow reports whether all keys are outside their cooldown window.
// Expired entries are pruned as a side effect.
func (r *CooldownRegistry) Allow(now time.Time, keys ...string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ok := true
	for _, k := range keys {
		until, exists := r.entries[k]
		if !exists {
			continue
		}
		if now.Before(until) {
			ok = false
		} else {
			delete(r.entries, k)
		}
	}
	return ok
}

// Mark starts the cooldown window for each key.
func (r *CooldownRegistry) Mark(now time.Time, keys ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	until := now.Add(r.window)
	for _, k := range keys {
		if k == "" {
			continue
		}
		r.entries[k] = until
	}
}

// Sweep drops all expired entries. Called opportunistically from the tick
// loop to bound memory on long sessions.
func (r *CooldownRegistry) Sweep(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, until := range r.entries {
		if !now.Before(until) {
			delete(r.entries, k)
		}
	}
}

// Len returns the number of live entries.
func (r *CooldownRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}
