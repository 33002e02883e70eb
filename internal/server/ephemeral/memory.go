package ephemeral

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

type entry struct {
	secret    string
	expiresAt time.Time
}

// MemoryCache is a process-local Cache. Expired entries are never returned
// and are swept periodically in the background.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]entry
	now     func() time.Time
	cron    *cron.Cron
}

// NewMemoryCache creates a cache whose sweep runs on the given cron spec
// (for example "@every 1m"). An empty spec disables the sweep.
func NewMemoryCache(sweepSpec string) (*MemoryCache, error) {
	c := &MemoryCache{
		entries: make(map[string]entry),
		now:     time.Now,
	}
	if sweepSpec == "" {
		return c, nil
	}

	c.cron = cron.New()
	if _, err := c.cron.AddFunc(sweepSpec, c.Sweep); err != nil {
		return nil, err
	}
	c.cron.Start()
	return c, nil
}

func (c *MemoryCache) Put(_ context.Context, key, secret string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{secret: secret, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryCache) Take(_ context.Context, key string) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return "", false, nil
	}
	delete(c.entries, key)
	if !c.now().Before(e.expiresAt) {
		return "", false, nil
	}
	return e.secret, true, nil
}

// Sweep drops every expired entry.
func (c *MemoryCache) Sweep() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
		}
	}
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Close stops the sweep and waits for a running one to finish.
func (c *MemoryCache) Close() error {
	if c.cron != nil {
		<-c.cron.Stop().Done()
	}
	return nil
}
