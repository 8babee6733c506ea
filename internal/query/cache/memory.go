package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"hr-query-engine/internal/models"
)

const DefaultCapacity = 1000

type entry struct {
	key       string
	env       *models.Envelope
	expiresAt time.Time
}

// MemoryCache is a TTL cache with least-recently-used eviction once full.
// Expired entries are dropped on lookup, and every write or stats read
// sweeps the rest.
type MemoryCache struct {
	mu       sync.Mutex
	ttl      time.Duration
	capacity int
	order    *list.List
	items    map[string]*list.Element
	now      func() time.Time
	stats    counters
}

func NewMemoryCache(ttl time.Duration, capacity int) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &MemoryCache{
		ttl:      ttl,
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (*models.Envelope, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		return nil, false, nil
	}
	return e.env.Clone(), true, nil
}

// GetWithTTL is Get that also reports how long the entry has left.
func (c *MemoryCache) GetWithTTL(_ context.Context, key string) (*models.Envelope, time.Duration, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.lookup(key)
	if !ok {
		return nil, 0, false, nil
	}
	return e.env.Clone(), e.expiresAt.Sub(c.now()), true, nil
}

// lookup requires c.mu.
func (c *MemoryCache) lookup(key string) (*entry, bool) {
	el, ok := c.items[key]
	if !ok {
		c.stats.misses.Inc()
		return nil, false
	}
	e := el.Value.(*entry)
	if !c.now().Before(e.expiresAt) {
		c.remove(el)
		c.stats.expired.Inc()
		c.stats.misses.Inc()
		return nil, false
	}
	c.order.MoveToFront(el)
	c.stats.hits.Inc()
	return e, true
}

func (c *MemoryCache) Set(ctx context.Context, key string, env *models.Envelope) error {
	return c.SetWithTTL(ctx, key, env, c.ttl)
}

// SetWithTTL stores env for ttl, capped at the cache TTL. A back-filled entry
// keeps the lifetime it had left in the tier it came from.
func (c *MemoryCache) SetWithTTL(_ context.Context, key string, env *models.Envelope, ttl time.Duration) error {
	if ttl <= 0 || ttl > c.ttl {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweep()
	e := &entry{key: key, env: env.Clone(), expiresAt: c.now().Add(ttl)}
	if el, ok := c.items[key]; ok {
		el.Value = e
		c.order.MoveToFront(el)
	} else {
		c.items[key] = c.order.PushFront(e)
	}
	c.stats.sets.Inc()

	for c.order.Len() > c.capacity {
		c.remove(c.order.Back())
		c.stats.evictions.Inc()
	}
	return nil
}

// Clear drops every entry and resets the counters.
func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.stats.reset()
	return nil
}

// ClearExpired removes every expired entry and returns how many were dropped.
func (c *MemoryCache) ClearExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sweep()
}

// sweep requires c.mu.
func (c *MemoryCache) sweep() int {
	now := c.now()
	n := 0
	for el := c.order.Back(); el != nil; {
		prev := el.Prev()
		if !now.Before(el.Value.(*entry).expiresAt) {
			c.remove(el)
			n++
		}
		el = prev
	}
	c.stats.expired.Add(int64(n))
	return n
}

func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats purges expired entries first so Size counts live entries only.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	c.sweep()
	size := c.order.Len()
	c.mu.Unlock()
	return c.stats.snapshot("memory", size)
}

func (c *MemoryCache) remove(el *list.Element) {
	c.order.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}
