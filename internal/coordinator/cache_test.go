package coordinator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scidex/scifetch/internal/domain"
)

func testResult(id string) *Result {
	return &Result{
		Source:    domain.SourceTypePubMed,
		Operation: domain.OperationFetch,
		Record:    &domain.Record{Source: domain.SourceTypePubMed, ID: id},
		Attempts:  2,
	}
}

func TestCache_GetSet(t *testing.T) {
	cache, err := NewCache(10, time.Hour)
	require.NoError(t, err)

	_, ok := cache.Get("missing")
	assert.False(t, ok)

	cache.Set("k1", testResult("39775738"), 0)

	got, ok := cache.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "39775738", got.Record.ID)
	assert.True(t, got.FromCache, "read results are flagged as cached")
	assert.Zero(t, got.Attempts, "no wire attempt served a cached read")

	// The stored entry is not mutated by the flagged copy.
	again, ok := cache.Get("k1")
	require.True(t, ok)
	assert.True(t, again.FromCache)
	assert.Zero(t, again.Attempts)
}

func TestCache_TTLExpiry(t *testing.T) {
	cache, err := NewCache(10, time.Hour)
	require.NoError(t, err)

	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Set("k1", testResult("1"), 10*time.Minute)

	_, ok := cache.Get("k1")
	assert.True(t, ok, "fresh entry hits")

	// Jump past the entry TTL.
	now = now.Add(11 * time.Minute)

	_, ok = cache.Get("k1")
	assert.False(t, ok, "stale entry misses")
	assert.Equal(t, 0, cache.Len(), "stale entry is evicted on read")
}

func TestCache_PerEntryTTL(t *testing.T) {
	cache, err := NewCache(10, time.Hour)
	require.NoError(t, err)

	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.Set("short", testResult("1"), time.Minute)
	cache.Set("long", testResult("2"), time.Hour)

	now = now.Add(5 * time.Minute)

	_, ok := cache.Get("short")
	assert.False(t, ok)
	_, ok = cache.Get("long")
	assert.True(t, ok)
}

func TestCache_LRUBound(t *testing.T) {
	cache, err := NewCache(3, time.Hour)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		cache.Set(fmt.Sprintf("k%d", i), testResult(fmt.Sprintf("%d", i)), 0)
	}

	assert.Equal(t, 3, cache.Len(), "capacity is enforced")

	_, ok := cache.Get("k0")
	assert.False(t, ok, "oldest entry is evicted")
	_, ok = cache.Get("k3")
	assert.True(t, ok)
}

func TestCache_Purge(t *testing.T) {
	cache, err := NewCache(10, time.Hour)
	require.NoError(t, err)

	cache.Set("k1", testResult("1"), 0)
	cache.Set("k2", testResult("2"), 0)
	require.Equal(t, 2, cache.Len())

	cache.Purge()
	assert.Equal(t, 0, cache.Len())
}

func TestCache_NilResultIgnored(t *testing.T) {
	cache, err := NewCache(10, time.Hour)
	require.NoError(t, err)

	cache.Set("k1", nil, 0)
	assert.Equal(t, 0, cache.Len())
}
