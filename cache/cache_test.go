package cache_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/salestaxio/poskit/cache"
)

func TestCache_GetSet(t *testing.T) {
	c := cache.New()

	_, ok := c.Get("missing")
	require.False(t, ok)

	c.Set("tax:abc", []byte("result"))

	value, ok := c.Get("tax:abc")
	require.True(t, ok)
	require.Equal(t, []byte("result"), value)

	stats := c.Stats()
	require.Equal(t, int64(1), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.Equal(t, 1, stats.Size)
}

func TestCache_TTLExpiry(t *testing.T) {
	c := cache.New()

	c.SetTTL("k", []byte("v"), 30*time.Millisecond)

	value, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("v"), value)

	time.Sleep(50 * time.Millisecond)

	_, ok = c.Get("k")
	require.False(t, ok)

	stats := c.Stats()
	require.Equal(t, int64(1), stats.Expirations)
	require.Equal(t, 0, stats.Size)
	// Lazy expiry is not an LRU eviction.
	require.Equal(t, int64(0), stats.Evictions)
}

func TestCache_LRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := cache.New(cache.WithMaxSize(3))

	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3"))

	// Touch "a" so "b" becomes the least recently used.
	_, ok := c.Get("a")
	require.True(t, ok)

	c.Set("d", []byte("4"))

	_, ok = c.Get("b")
	require.False(t, ok)

	for _, key := range []string{"a", "c", "d"} {
		_, ok := c.Get(key)
		require.True(t, ok, "expected %q to survive eviction", key)
	}

	require.Equal(t, int64(1), c.Stats().Evictions)
}

func TestCache_DeleteNotCountedAsEviction(t *testing.T) {
	c := cache.New()

	c.Set("k", []byte("v"))
	c.Delete("k")

	_, ok := c.Get("k")
	require.False(t, ok)
	require.Equal(t, int64(0), c.Stats().Evictions)
}

func TestCache_OverwriteRefreshesTTL(t *testing.T) {
	c := cache.New()

	c.SetTTL("k", []byte("old"), 20*time.Millisecond)
	c.SetTTL("k", []byte("new"), time.Minute)

	time.Sleep(40 * time.Millisecond)

	value, ok := c.Get("k")
	require.True(t, ok)
	require.Equal(t, []byte("new"), value)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := cache.New(cache.WithMaxSize(64))

	done := make(chan struct{})
	for i := 0; i < 8; i++ {
		go func(n int) {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 200; j++ {
				key := fmt.Sprintf("k%d", j%32)
				c.Set(key, []byte{byte(n)})
				c.Get(key)
			}
		}(i)
	}

	for i := 0; i < 8; i++ {
		<-done
	}
}
