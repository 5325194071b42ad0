package cache

import (
	"slices"
	"sync"
	"time"

	"github.com/use-agent/vgascout/models"
)

// entry holds a cached run with its creation timestamp.
type entry struct {
	run       *models.Run
	createdAt time.Time
}

// Cache keeps recent runs in memory so GET /runs/:id works without a
// database. It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	ttl        time.Duration
	now        func() time.Time
}

// New creates a Cache holding at most maxEntries runs for ttl each.
// Expired entries are dropped lazily on access.
func New(maxEntries int, ttl time.Duration) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Get returns the run for id if present and not expired.
func (c *Cache) Get(id string) (*models.Run, bool) {
	c.mu.RLock()
	e, ok := c.store[id]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.ttl > 0 && c.now().Sub(e.createdAt) > c.ttl {
		c.mu.Lock()
		delete(c.store, id)
		c.mu.Unlock()
		return nil, false
	}
	return e.run, true
}

// Set stores a run. At capacity, expired entries go first, then the oldest.
func (c *Cache) Set(run *models.Run) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[run.ID]; !exists && len(c.store) >= c.maxEntries {
		c.evictLocked()
	}
	c.store[run.ID] = &entry{run: run, createdAt: c.now()}
}

// Recent returns up to limit unexpired runs, most recently started first.
func (c *Cache) Recent(limit int) []*models.Run {
	c.mu.RLock()
	now := c.now()
	runs := make([]*models.Run, 0, len(c.store))
	for _, e := range c.store {
		if c.ttl > 0 && now.Sub(e.createdAt) > c.ttl {
			continue
		}
		runs = append(runs, e.run)
	}
	c.mu.RUnlock()

	slices.SortFunc(runs, func(a, b *models.Run) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}

// Len returns the number of cached runs, expired ones included.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *Cache) evictLocked() {
	now := c.now()
	var oldestID string
	var oldest time.Time
	for id, e := range c.store {
		if c.ttl > 0 && now.Sub(e.createdAt) > c.ttl {
			delete(c.store, id)
			continue
		}
		if oldestID == "" || e.createdAt.Before(oldest) {
			oldestID, oldest = id, e.createdAt
		}
	}
	if len(c.store) >= c.maxEntries && oldestID != "" {
		delete(c.store, oldestID)
	}
}
