package app

import (
	"context"
	"sync"
	"time"

	"pixelary/internal/config"
	"pixelary/internal/ports"

	"golang.org/x/sync/singleflight"
)

// configCache serves bandit parameters for ttl between store reads.
// Concurrent refreshes share one store call.
type configCache struct {
	store     ports.BanditConfigStore
	namespace string
	ttl       time.Duration
	now       func() time.Time

	group singleflight.Group

	mu        sync.RWMutex
	value     config.BanditConfig
	fetchedAt time.Time
	loaded    bool
	// gen is bumped by Invalidate; a refresh that began under an older gen
	// does not populate the cache.
	gen uint64
}

func newConfigCache(store ports.BanditConfigStore, namespace string, ttl time.Duration, now func() time.Time) *configCache {
	return &configCache{store: store, namespace: namespace, ttl: ttl, now: now}
}

// Get returns the cached value when fresh. On a failed refresh it returns the
// last good value, or the defaults, together with the error.
func (c *configCache) Get(ctx context.Context) (config.BanditConfig, error) {
	c.mu.RLock()
	value, fetchedAt, loaded := c.value, c.fetchedAt, c.loaded
	c.mu.RUnlock()

	if loaded && c.ttl > 0 && c.now().Sub(fetchedAt) < c.ttl {
		return value, nil
	}

	v, err, _ := c.group.Do(c.namespace, func() (any, error) {
		c.mu.RLock()
		gen := c.gen
		c.mu.RUnlock()

		cfg, err := c.store.GetConfig(ctx, c.namespace)
		if err != nil {
			return nil, err
		}
		cfg = cfg.Normalize()
		c.mu.Lock()
		if c.gen == gen {
			c.value, c.fetchedAt, c.loaded = cfg, c.now(), true
		}
		c.mu.Unlock()
		return cfg, nil
	})
	if err != nil {
		if loaded {
			return value, err
		}
		return config.DefaultBanditConfig(), err
	}
	return v.(config.BanditConfig), nil
}

// Invalidate forces the next Get to read the store.
func (c *configCache) Invalidate() {
	c.mu.Lock()
	c.loaded = false
	c.gen++
	c.mu.Unlock()
	c.group.Forget(c.namespace)
}
