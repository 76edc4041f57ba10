package ttlcache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tachyoncache/tachyon/internal/clock"
)

func TestCache_SetAndGet(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(0, 0))
	cache := New[string, string](clk, 100*time.Millisecond, 0)
	defer cache.Stop()

	cache.Set("key1", "value1")
	val, found := cache.Get("key1")

	assert.True(t, found)
	assert.Equal(t, "value1", val)
}

func TestCache_GetExpired(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(0, 0))
	ttl := 50 * time.Millisecond
	cache := New[string, int](clk, ttl, 0)
	defer cache.Stop()

	cache.Set("key1", 123)
	clk.AdvanceTime(ttl + time.Millisecond)

	val, found := cache.Get("key1")

	assert.False(t, found)
	assert.Equal(t, 0, val)
}

func TestCache_GetNonExistent(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(0, 0))
	cache := New[string, int](clk, time.Minute, 0)
	defer cache.Stop()

	val, found := cache.Get("non-existent-key")

	assert.False(t, found)
	assert.Equal(t, 0, val)
}

func TestCache_SetOverrides(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(0, 0))
	cache := New[string, string](clk, time.Minute, 0)
	defer cache.Stop()

	cache.Set("key1", "value1")
	cache.Set("key1", "value2")

	val, found := cache.Get("key1")
	assert.True(t, found)
	assert.Equal(t, "value2", val)
}

func TestCache_Delete(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(0, 0))
	cache := New[string, string](clk, time.Minute, 0)
	defer cache.Stop()

	cache.Set("key1", "value1")
	cache.Delete("key1")

	_, found := cache.Get("key1")
	assert.False(t, found)
}

func TestCache_NoTTLNeverExpires(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(0, 0))
	cache := New[string, string](clk, 0, 0)
	defer cache.Stop()

	cache.Set("key1", "value1")
	clk.AdvanceTime(24 * time.Hour)

	val, found := cache.Get("key1")
	assert.True(t, found)
	assert.Equal(t, "value1", val)
}

func TestCache_SweepFiresOnEvictCallback(t *testing.T) {
	clk := clock.NewSimulatedClock(time.Unix(0, 0))
	ttl := 50 * time.Millisecond
	// cleanupInterval of 0 disables the background goroutine; sweep() is
	// exercised directly below to avoid racing a real goroutine against
	// the simulated clock.
	cache := New[string, int](clk, ttl, 0)
	defer cache.Stop()

	var evictedKey string
	evictedCount := 0
	cache.OnEvict(func(k string, v int) {
		evictedKey = k
		evictedCount++
	})

	cache.Set("key1", 123)

	cache.sweep()
	assert.Equal(t, 0, evictedCount, "sweep before ttl elapsed should not evict")

	clk.AdvanceTime(ttl + time.Millisecond)
	cache.sweep()

	assert.Equal(t, 1, evictedCount)
	assert.Equal(t, "key1", evictedKey)
	assert.Equal(t, 0, cache.Len())
}
