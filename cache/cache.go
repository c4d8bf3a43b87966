package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache is an in-memory TTL+LRU response cache. Entries expire individually;
// expired entries are discarded lazily on Get and count as misses. When the
// entry count exceeds the configured maximum the least recently used entry
// is evicted.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	SetTTL(key string, value []byte, ttl time.Duration)
	Delete(key string)
	Len() int
	Stats() Stats
}

type Stats struct {
	Hits        int64
	Misses      int64
	Evictions   int64
	Expirations int64
	Size        int
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

type Config struct {
	// MaxSize is the maximum number of entries before LRU eviction.
	MaxSize int

	// DefaultTTL is the expiry applied by Set. SetTTL overrides it per entry.
	DefaultTTL time.Duration
}

type Option func(*Config)

func defaultConfig() Config {
	return Config{
		MaxSize:    1000,
		DefaultTTL: 5 * time.Minute,
	}
}

func WithMaxSize(n int) Option {
	return func(c *Config) {
		c.MaxSize = n
	}
}

func WithDefaultTTL(d time.Duration) Option {
	return func(c *Config) {
		c.DefaultTTL = d
	}
}

var _ Cache = (*memoryCache)(nil)

type memoryCache struct {
	config Config

	mu  sync.Mutex
	lru *lru.Cache[string, entry]

	// removing suppresses the eviction counter while we drop expired or
	// explicitly deleted entries; only capacity pressure counts as eviction.
	removing bool

	hits        int64
	misses      int64
	evictions   int64
	expirations int64
}

func New(opts ...Option) Cache {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}

	c := &memoryCache{config: config}

	inner, err := lru.NewWithEvict(config.MaxSize, func(string, entry) {
		if !c.removing {
			c.evictions++
		}
	})
	if err != nil {
		// Only reachable with a non-positive MaxSize.
		panic(err)
	}

	c.lru = inner
	return c
}

func (c *memoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lru.Get(key)
	if !ok {
		c.misses++
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		c.removing = true
		c.lru.Remove(key)
		c.removing = false

		c.expirations++
		c.misses++
		return nil, false
	}

	c.hits++
	return e.value, true
}

func (c *memoryCache) Set(key string, value []byte) {
	c.SetTTL(key, value, c.config.DefaultTTL)
}

func (c *memoryCache) SetTTL(key string, value []byte, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Add(key, entry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	})
}

func (c *memoryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removing = true
	c.lru.Remove(key)
	c.removing = false
}

func (c *memoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *memoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Expirations: c.expirations,
		Size:        c.lru.Len(),
	}
}
