package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"pixelary/internal/config"
	"pixelary/internal/domain"
	"pixelary/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// memCounters is an in-memory CounterStore.
type memCounters struct {
	mu      sync.Mutex
	data    map[string]domain.Counters
	readErr error
	incErr  error
	calls   int
}

func newMemCounters() *memCounters {
	return &memCounters{data: make(map[string]domain.Counters)}
}

func (m *memCounters) Increment(_ context.Context, ns string, incs []ports.CounterIncrement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.incErr != nil {
		return m.incErr
	}
	for _, inc := range incs {
		c := m.data[ns+"/"+inc.Word]
		c.Add(inc.Field, inc.Delta)
		m.data[ns+"/"+inc.Word] = c
	}
	return nil
}

func (m *memCounters) Counters(_ context.Context, ns string, words []string) (map[string]domain.Counters, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readErr != nil {
		return nil, m.readErr
	}
	out := make(map[string]domain.Counters)
	for _, w := range words {
		if c, ok := m.data[ns+"/"+w]; ok {
			out[w] = c
		}
	}
	return out, nil
}

func (m *memCounters) get(ns, word string) domain.Counters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[ns+"/"+word]
}

func (m *memCounters) set(ns, word string, c domain.Counters) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[ns+"/"+word] = c
}

// memPool serves a fixed word list.
type memPool struct {
	words  []domain.WordRef
	err    error
	seeded int64
}

func (p *memPool) EligibleWords(context.Context, string, []string) ([]domain.WordRef, error) {
	if p.err != nil {
		return nil, p.err
	}
	return append([]domain.WordRef(nil), p.words...), nil
}

func (p *memPool) AddWords(_ context.Context, _, dict string, words []string) (int, error) {
	for _, w := range words {
		p.words = append(p.words, domain.WordRef{Word: w, Dictionary: dict})
	}
	return len(words), nil
}

func (p *memPool) SeedCounters(context.Context, string) (int64, error) {
	if p.err != nil {
		return 0, p.err
	}
	return p.seeded, nil
}

// memSlates keeps slates in a map and ignores ttl.
type memSlates struct {
	mu      sync.Mutex
	slates  map[string]domain.Slate
	saveErr error
	loadErr error
	purged  int64
}

func newMemSlates() *memSlates {
	return &memSlates{slates: make(map[string]domain.Slate)}
}

func (m *memSlates) SaveSlate(_ context.Context, _ string, s domain.Slate, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.slates[s.ID] = s
	return nil
}

func (m *memSlates) LoadSlate(_ context.Context, _, id string) (domain.Slate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return domain.Slate{}, m.loadErr
	}
	s, ok := m.slates[id]
	if !ok {
		return domain.Slate{}, ports.ErrSlateNotFound
	}
	return s, nil
}

func (m *memSlates) PurgeExpiredSlates(context.Context, time.Time) (int64, error) {
	return m.purged, nil
}

// memConfig is a BanditConfigStore that counts reads.
type memConfig struct {
	mu    sync.Mutex
	cfg   *config.BanditConfig
	err   error
	reads int
}

func (m *memConfig) GetConfig(context.Context, string) (config.BanditConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++
	if m.err != nil {
		return config.BanditConfig{}, m.err
	}
	if m.cfg == nil {
		return config.DefaultBanditConfig(), nil
	}
	return *m.cfg, nil
}

func (m *memConfig) PutConfig(_ context.Context, _ string, cfg config.BanditConfig) (config.BanditConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return config.BanditConfig{}, m.err
	}
	version := int64(0)
	if m.cfg != nil {
		version = m.cfg.Version
	}
	cfg = cfg.Normalize()
	cfg.Version = version + 1
	m.cfg = &cfg
	return cfg, nil
}

func (m *memConfig) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}

// memLock is a single-process Lock.
type memLock struct {
	held       map[string]bool
	acquireErr error
	released   []string
}

func (l *memLock) TryAcquire(_ context.Context, key string, _ time.Duration) (bool, error) {
	if l.acquireErr != nil {
		return false, l.acquireErr
	}
	if l.held == nil {
		l.held = make(map[string]bool)
	}
	if l.held[key] {
		return false, nil
	}
	l.held[key] = true
	return true, nil
}

func (l *memLock) Release(_ context.Context, key string) error {
	delete(l.held, key)
	l.released = append(l.released, key)
	return nil
}

// recordingMetrics sums counters by name.
type recordingMetrics struct {
	mu     sync.Mutex
	counts map[string]int64
}

func (r *recordingMetrics) CounterAdd(name string, _ map[string]string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int64)
	}
	r.counts[name] += delta
}

func (r *recordingMetrics) count(name string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

var errStoreDown = errors.New("store down")
