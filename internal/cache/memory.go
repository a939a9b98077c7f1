package cache

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// entry is one cached upstream response body.
type entry struct {
	body     []byte
	deadline time.Time
}

// MemoryCache keeps recent history-service responses in a bounded LRU with a
// fixed TTL. Keys are full request URLs, so distinct query parameters never
// collide.
type MemoryCache struct {
	store *lru.Cache[string, entry]
	ttl   time.Duration
	done  chan struct{}
	mu    sync.RWMutex
}

// NewMemoryCache creates a cache holding at most size responses for ttl each.
func NewMemoryCache(size int, ttl time.Duration) (*MemoryCache, error) {
	store, err := lru.New[string, entry](size)
	if err != nil {
		return nil, err
	}

	c := &MemoryCache{
		store: store,
		ttl:   ttl,
		done:  make(chan struct{}),
	}
	go c.sweep()
	return c, nil
}

// Get returns the cached response for key if it is still fresh.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.store.Get(key)
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if time.Now().After(e.deadline) {
		c.mu.Lock()
		c.store.Remove(key)
		c.mu.Unlock()
		return nil, false
	}
	return e.body, true
}

// Set stores a response under key for the configured TTL.
func (c *MemoryCache) Set(key string, value []byte) {
	c.mu.Lock()
	c.store.Add(key, entry{body: value, deadline: time.Now().Add(c.ttl)})
	c.mu.Unlock()
}

// Close stops the expiry sweep.
func (c *MemoryCache) Close() {
	close(c.done)
}

// sweep periodically drops stale entries so the LRU does not pin expired
// responses until eviction.
func (c *MemoryCache) sweep() {
	ticker := time.NewTicker(c.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.dropStale()
		}
	}
}

func (c *MemoryCache) dropStale() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, key := range c.store.Keys() {
		if e, ok := c.store.Peek(key); ok && now.After(e.deadline) {
			c.store.Remove(key)
		}
	}
}

// NoopCache stands in when response caching is disabled.
type NoopCache struct{}

// NewNoopCache creates a cache that never hits.
func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (*NoopCache) Get(key string) ([]byte, bool) { return nil, false }

func (*NoopCache) Set(key string, value []byte) {}

func (*NoopCache) Close() {}
