package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"pixelary/internal/config"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestConfigCache_ServesWithinTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := &memConfig{}
	cache := newConfigCache(store, testNS, 5*time.Second, clock.Now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := cache.Get(ctx); err != nil {
			t.Fatalf("get: %v", err)
		}
	}
	if store.readCount() != 1 {
		t.Fatalf("reads = %d, want 1", store.readCount())
	}

	clock.Advance(6 * time.Second)
	if _, err := cache.Get(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}
	if store.readCount() != 2 {
		t.Fatalf("reads = %d, want 2 after expiry", store.readCount())
	}
}

func TestConfigCache_NormalizesStoredValues(t *testing.T) {
	store := &memConfig{cfg: &config.BanditConfig{ExplorationRate: -2, ZScoreClamp: 0, WeightPickRate: 2}}
	cache := newConfigCache(store, testNS, time.Second, time.Now)

	cfg, err := cache.Get(context.Background())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.ExplorationRate != 0 || cfg.ZScoreClamp != config.DefaultZScoreClamp || cfg.WeightPickRate != 2 {
		t.Fatalf("Expected normalized config, got %+v", cfg)
	}
}

func TestConfigCache_FallsBackOnError(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	store := &memConfig{err: errStoreDown}
	cache := newConfigCache(store, testNS, time.Second, clock.Now)
	ctx := context.Background()

	cfg, err := cache.Get(ctx)
	if !errors.Is(err, errStoreDown) {
		t.Fatalf("Expected store error, got %v", err)
	}
	if cfg != config.DefaultBanditConfig() {
		t.Fatalf("Expected defaults before any load, got %+v", cfg)
	}

	store.mu.Lock()
	store.err = nil
	store.cfg = &config.BanditConfig{ExplorationRate: 0.4, ZScoreClamp: 2, WeightPickRate: 1, WeightPostRate: 1, Version: 3}
	store.mu.Unlock()
	if _, err := cache.Get(ctx); err != nil {
		t.Fatalf("get: %v", err)
	}

	store.mu.Lock()
	store.err = errStoreDown
	store.mu.Unlock()
	clock.Advance(2 * time.Second)
	cfg, err = cache.Get(ctx)
	if err == nil || cfg.Version != 3 {
		t.Fatalf("Expected stale v3 with error, got %+v, %v", cfg, err)
	}
}

func TestConfigCache_Invalidate(t *testing.T) {
	store := &memConfig{}
	cache := newConfigCache(store, testNS, time.Hour, time.Now)
	ctx := context.Background()

	_, _ = cache.Get(ctx)
	cache.Invalidate()
	_, _ = cache.Get(ctx)
	if store.readCount() != 2 {
		t.Fatalf("reads = %d, want 2 after invalidate", store.readCount())
	}
}

// gatedConfig holds its first read open until release is closed.
type gatedConfig struct {
	memConfig
	entered chan struct{}
	release chan struct{}
}

func (g *gatedConfig) GetConfig(ctx context.Context, ns string) (config.BanditConfig, error) {
	cfg, err := g.memConfig.GetConfig(ctx, ns)
	select {
	case g.entered <- struct{}{}:
	default:
	}
	<-g.release
	return cfg, err
}

func TestConfigCache_InvalidateDuringRefreshDiscardsStaleValue(t *testing.T) {
	old := config.DefaultBanditConfig()
	old.ExplorationRate = 0.2
	store := &gatedConfig{
		memConfig: memConfig{cfg: &old},
		entered:   make(chan struct{}, 1),
		release:   make(chan struct{}),
	}
	cache := newConfigCache(store, testNS, time.Minute, time.Now)
	ctx := context.Background()

	done := make(chan config.BanditConfig, 1)
	go func() {
		cfg, _ := cache.Get(ctx)
		done <- cfg
	}()
	<-store.entered

	next := config.DefaultBanditConfig()
	next.ExplorationRate = 0.7
	if _, err := store.PutConfig(ctx, testNS, next); err != nil {
		t.Fatalf("put: %v", err)
	}
	cache.Invalidate()
	close(store.release)

	if stale := <-done; stale.ExplorationRate != 0.2 {
		t.Fatalf("Expected the in-flight read to see 0.2, got %v", stale.ExplorationRate)
	}
	cfg, err := cache.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if cfg.ExplorationRate != 0.7 {
		t.Fatalf("Expected 0.7 after invalidation, got %v", cfg.ExplorationRate)
	}
}
