package pricecache

import (
	"io"
	"testing"
	"time"

	"github.com/coverly/erp-bridge/internal/erp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *time.Time) {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := New(logger)
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return current }
	return c, &current
}

func breakdown(planID string) []erp.PriceBreakdown {
	return []erp.PriceBreakdown{{PlanID: planID, Currency: "USD", Total: 199.99}}
}

func mustKey(t *testing.T, tenantID string, planIDs []string) string {
	t.Helper()
	key, err := GenerateKey(tenantID, planIDs)
	require.NoError(t, err)
	return key
}

func TestGetMissOnAbsentKey(t *testing.T) {
	c, _ := newTestCache(t)

	_, ok := c.Get("price:tenant-a:0000000000000000")
	assert.False(t, ok)

	stats := c.Statistics()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestSetThenGetHit(t *testing.T) {
	c, _ := newTestCache(t)
	key := mustKey(t, "tenant-a", []string{"plan-1"})

	c.Set(key, breakdown("plan-1"), time.Minute, "tenant-a")

	entry, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, "tenant-a", entry.TenantID)
	assert.Equal(t, breakdown("plan-1"), entry.Data)
	assert.Equal(t, 1, entry.HitCount)

	stats := c.Statistics()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(0), stats.Misses)
}

func TestTTLExpiryCountsMissAndEviction(t *testing.T) {
	c, now := newTestCache(t)
	key := mustKey(t, "tenant-a", []string{"plan-1"})

	c.Set(key, breakdown("plan-1"), time.Minute, "tenant-a")

	_, ok := c.Get(key)
	require.True(t, ok, "fresh entry must be a hit")

	*now = now.Add(61 * time.Second)

	_, ok = c.Get(key)
	assert.False(t, ok, "entry past its TTL must be a miss")

	stats := c.Statistics()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Evictions)
	assert.Equal(t, 0, stats.Entries)
}

func TestEntryLiveAtExactTTLBoundary(t *testing.T) {
	c, now := newTestCache(t)
	key := mustKey(t, "tenant-a", []string{"plan-1"})

	c.Set(key, breakdown("plan-1"), time.Minute, "tenant-a")
	*now = now.Add(time.Minute)

	_, ok := c.Get(key)
	assert.True(t, ok, "entry at exactly ttl age is still live")
}

func TestSetOverwritesExistingEntry(t *testing.T) {
	c, now := newTestCache(t)
	key := mustKey(t, "tenant-a", []string{"plan-1"})

	c.Set(key, breakdown("plan-1"), time.Minute, "tenant-a")
	_, _ = c.Get(key)
	_, _ = c.Get(key)

	*now = now.Add(30 * time.Second)
	c.Set(key, breakdown("plan-1b"), time.Hour, "tenant-a")

	entry, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, breakdown("plan-1b"), entry.Data)
	assert.Equal(t, 1, entry.HitCount, "hit count restarts on overwrite")
	assert.Equal(t, time.Hour, entry.TTL)
	assert.Equal(t, *now, entry.InsertedAt)
}

func TestStatisticsRates(t *testing.T) {
	c, _ := newTestCache(t)
	key := mustKey(t, "tenant-a", []string{"plan-1"})
	c.Set(key, breakdown("plan-1"), time.Minute, "tenant-a")

	for i := 0; i < 3; i++ {
		_, ok := c.Get(key)
		require.True(t, ok)
	}
	for i := 0; i < 2; i++ {
		_, ok := c.Get("price:tenant-a:ffffffffffffffff")
		require.False(t, ok)
	}

	stats := c.Statistics()
	assert.InDelta(t, 0.6, stats.HitRate, 1e-9)
	assert.InDelta(t, 0.4, stats.MissRate, 1e-9)
	assert.Equal(t, 3, stats.TotalHits)
}

func TestStatisticsEmptyCache(t *testing.T) {
	c, _ := newTestCache(t)

	stats := c.Statistics()
	assert.Zero(t, stats.HitRate)
	assert.Zero(t, stats.MissRate)
	assert.Zero(t, stats.Entries)
	assert.Nil(t, stats.OldestAge)
}

func TestStatisticsOldestEntryAge(t *testing.T) {
	c, now := newTestCache(t)

	c.Set(mustKey(t, "tenant-a", []string{"plan-1"}), breakdown("plan-1"), time.Hour, "tenant-a")
	*now = now.Add(10 * time.Minute)
	c.Set(mustKey(t, "tenant-a", []string{"plan-2"}), breakdown("plan-2"), time.Hour, "tenant-a")
	*now = now.Add(5 * time.Minute)

	stats := c.Statistics()
	require.NotNil(t, stats.OldestAge)
	assert.Equal(t, 15*time.Minute, *stats.OldestAge)
}

func TestInvalidateKeyExact(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set(mustKey(t, "tenant-a", []string{"plan-1"}), breakdown("plan-1"), time.Minute, "tenant-a")
	c.Set(mustKey(t, "tenant-a", []string{"plan-2"}), breakdown("plan-2"), time.Minute, "tenant-a")

	removed, err := c.InvalidateKey("tenant-a", []string{"plan-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok := c.Get(mustKey(t, "tenant-a", []string{"plan-1"}))
	assert.False(t, ok)
	_, ok = c.Get(mustKey(t, "tenant-a", []string{"plan-2"}))
	assert.True(t, ok)
}

func TestInvalidateKeyAbsent(t *testing.T) {
	c, _ := newTestCache(t)

	removed, err := c.InvalidateKey("tenant-a", []string{"plan-1"})
	require.NoError(t, err)
	assert.Zero(t, removed)
	assert.Zero(t, c.Statistics().Evictions)
}

func TestInvalidateKeyEmptyPlanIDs(t *testing.T) {
	c, _ := newTestCache(t)

	_, err := c.InvalidateKey("tenant-a", nil)
	assert.ErrorIs(t, err, ErrNoPlanIDs)
}

func TestInvalidateTenantScoped(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set(mustKey(t, "tenant-a", []string{"plan-1"}), breakdown("plan-1"), time.Minute, "tenant-a")
	c.Set(mustKey(t, "tenant-a", []string{"plan-2"}), breakdown("plan-2"), time.Minute, "tenant-a")
	c.Set(mustKey(t, "tenant-b", []string{"plan-1"}), breakdown("plan-1"), time.Minute, "tenant-b")

	removed := c.InvalidateTenant("tenant-a")
	assert.Equal(t, 2, removed)

	_, ok := c.Get(mustKey(t, "tenant-b", []string{"plan-1"}))
	assert.True(t, ok, "tenant-b entries must survive tenant-a invalidation")
	assert.Equal(t, uint64(2), c.Statistics().Evictions)
}

func TestInvalidateAll(t *testing.T) {
	c, _ := newTestCache(t)

	c.Set(mustKey(t, "tenant-a", []string{"plan-1"}), breakdown("plan-1"), time.Minute, "tenant-a")
	c.Set(mustKey(t, "tenant-b", []string{"plan-1"}), breakdown("plan-1"), time.Minute, "tenant-b")
	c.Set(mustKey(t, "tenant-c", []string{"plan-1"}), breakdown("plan-1"), time.Minute, "tenant-c")

	removed := c.InvalidateAll()
	assert.Equal(t, 3, removed)

	stats := c.Statistics()
	assert.Equal(t, 0, stats.Entries)
	assert.Equal(t, uint64(3), stats.Evictions)
}

func TestSweepExpiredRemovesOnlyExpired(t *testing.T) {
	c, now := newTestCache(t)

	for _, plan := range []string{"p1", "p2", "p3", "p4"} {
		c.Set(mustKey(t, "tenant-a", []string{plan}), breakdown(plan), time.Minute, "tenant-a")
	}
	*now = now.Add(2 * time.Minute)
	for _, plan := range []string{"p5", "p6", "p7", "p8", "p9", "p10"} {
		c.Set(mustKey(t, "tenant-a", []string{plan}), breakdown(plan), time.Hour, "tenant-a")
	}

	for _, plan := range []string{"p5", "p6"} {
		_, ok := c.Get(mustKey(t, "tenant-a", []string{plan}))
		require.True(t, ok)
	}

	removed := c.SweepExpired()
	assert.Equal(t, 4, removed)

	stats := c.Statistics()
	assert.Equal(t, 6, stats.Entries)
	assert.Equal(t, uint64(4), stats.Evictions)

	entry, ok := c.Get(mustKey(t, "tenant-a", []string{"p5"}))
	require.True(t, ok, "live entries must survive the sweep")
	assert.Equal(t, 2, entry.HitCount, "sweep must not touch hit counts")
}

func TestSweepExpiredEmptyCache(t *testing.T) {
	c, _ := newTestCache(t)
	assert.Zero(t, c.SweepExpired())
}

func TestReset(t *testing.T) {
	c, _ := newTestCache(t)
	key := mustKey(t, "tenant-a", []string{"plan-1"})

	c.Set(key, breakdown("plan-1"), time.Minute, "tenant-a")
	_, _ = c.Get(key)
	_, _ = c.Get("price:tenant-a:ffffffffffffffff")
	c.InvalidateAll()

	c.Reset()

	stats := c.Statistics()
	assert.Zero(t, stats.Hits)
	assert.Zero(t, stats.Misses)
	assert.Zero(t, stats.Evictions)
	assert.Zero(t, stats.Entries)
}
