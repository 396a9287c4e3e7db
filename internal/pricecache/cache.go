package pricecache

import (
	"sync"
	"time"

	"github.com/coverly/erp-bridge/internal/erp"
	"github.com/sirupsen/logrus"
)

// Entry is one cached pricing result. The cache treats the breakdown slice
// as opaque data; it is never inspected or mutated here.
type Entry struct {
	Data       []erp.PriceBreakdown
	InsertedAt time.Time
	TTL        time.Duration
	HitCount   int
	TenantID   string
}

// Statistics is a point-in-time snapshot computed from live state. The
// counters are cumulative since construction or the last Reset.
type Statistics struct {
	Hits       uint64         `json:"hits"`
	Misses     uint64         `json:"misses"`
	Evictions  uint64         `json:"evictions"`
	HitRate    float64        `json:"hit_rate"`
	MissRate   float64        `json:"miss_rate"`
	Entries    int            `json:"entries"`
	TotalHits  int            `json:"total_hits_across_entries"`
	OldestAge  *time.Duration `json:"oldest_entry_age,omitempty"`
}

// Cache is a tenant-scoped in-memory price cache with TTL expiry. Liveness is
// re-checked on every read; the background sweeper only bounds how long dead
// entries linger. All operations are synchronous and never touch I/O.
type Cache struct {
	mu        sync.Mutex
	entries   map[string]*Entry
	hits      uint64
	misses    uint64
	evictions uint64

	now func() time.Time
	log *logrus.Entry
}

func New(logger *logrus.Logger) *Cache {
	return &Cache{
		entries: make(map[string]*Entry),
		now:     time.Now,
		log:     logger.WithField("component", "price_cache"),
	}
}

func (e *Entry) expired(now time.Time) bool {
	return now.Sub(e.InsertedAt) > e.TTL
}

// Get returns a copy of the live entry for key. An absent or expired entry is
// a miss; an expired entry is deleted on the spot and also counted as an
// eviction.
func (c *Cache) Get(key string) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		c.misses++
		return Entry{}, false
	}

	if entry.expired(c.now()) {
		delete(c.entries, key)
		c.misses++
		c.evictions++
		return Entry{}, false
	}

	entry.HitCount++
	c.hits++
	return *entry, true
}

// Set stores data under key, unconditionally replacing any existing entry.
// The hit count always restarts at zero; there are no merge semantics.
func (c *Cache) Set(key string, data []erp.PriceBreakdown, ttl time.Duration, tenantID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &Entry{
		Data:       data,
		InsertedAt: c.now(),
		TTL:        ttl,
		TenantID:   tenantID,
	}
}

// InvalidateKey deletes the exact entry for a (tenant, plan ids) pair and
// returns how many entries were removed (0 or 1).
func (c *Cache) InvalidateKey(tenantID string, planIDs []string) (int, error) {
	key, err := GenerateKey(tenantID, planIDs)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return 0, nil
	}
	delete(c.entries, key)
	c.evictions++
	return 1, nil
}

// InvalidateTenant deletes every entry owned by tenantID and returns the
// removal count.
func (c *Cache) InvalidateTenant(tenantID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.TenantID == tenantID {
			delete(c.entries, key)
			c.evictions++
			removed++
		}
	}

	c.log.WithFields(logrus.Fields{
		"tenant_id": tenantID,
		"removed":   removed,
	}).Info("Invalidated tenant cache entries")
	return removed
}

// InvalidateAll empties the cache and returns the prior entry count. Counters
// are preserved; each removal counts as an eviction.
func (c *Cache) InvalidateAll() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := len(c.entries)
	c.entries = make(map[string]*Entry)
	c.evictions += uint64(removed)

	c.log.WithField("removed", removed).Info("Invalidated all cache entries")
	return removed
}

// SweepExpired removes every expired entry and returns the removal count.
// Runs on a fixed cadence via the Sweeper, and is safe to call manually.
func (c *Cache) SweepExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			c.evictions++
			removed++
		}
	}
	return removed
}

// Statistics computes a snapshot on demand. Only live entries count toward
// the entry totals; expired-but-unswept entries are ignored without being
// evicted, so reading statistics never mutates state.
func (c *Cache) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := Statistics{
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
	}

	if total := c.hits + c.misses; total > 0 {
		stats.HitRate = float64(c.hits) / float64(total)
		stats.MissRate = float64(c.misses) / float64(total)
	}

	now := c.now()
	for _, entry := range c.entries {
		if entry.expired(now) {
			continue
		}
		stats.Entries++
		stats.TotalHits += entry.HitCount
		age := now.Sub(entry.InsertedAt)
		if stats.OldestAge == nil || age > *stats.OldestAge {
			oldest := age
			stats.OldestAge = &oldest
		}
	}

	return stats
}

// Reset clears all entries and zeroes all counters. For test isolation only.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*Entry)
	c.hits = 0
	c.misses = 0
	c.evictions = 0
}
