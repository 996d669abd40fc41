package app

import (
	"context"
	"fmt"
	"time"

	"pixelary/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

// MaintenanceReport summarizes one maintenance pass.
type MaintenanceReport struct {
	Skipped        bool  `json:"skipped"`
	PurgedSlates   int64 `json:"purgedSlates"`
	SeededCounters int64 `json:"seededCounters"`
}

// Maintainer runs the out-of-band housekeeping pass for one namespace.
// Only one node runs a pass at a time; the others skip.
type Maintainer struct {
	namespace string
	lockTTL   time.Duration
	lock      ports.Lock
	slates    ports.SlateStore
	pool      ports.WordPool
	metrics   ports.MetricsPort
	logger    runtime.Logger
	now       func() time.Time
}

// NewMaintainer wires a Maintainer. slates may be nil when no slate store is used.
func NewMaintainer(namespace string, lockTTL time.Duration, lock ports.Lock, slates ports.SlateStore, pool ports.WordPool, metrics ports.MetricsPort, logger runtime.Logger) *Maintainer {
	if metrics == nil {
		metrics = ports.NoopMetrics{}
	}
	return &Maintainer{
		namespace: namespace,
		lockTTL:   lockTTL,
		lock:      lock,
		slates:    slates,
		pool:      pool,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

func (m *Maintainer) lockKey() string {
	return "wordslate:maintenance:" + m.namespace
}

// RunOnce performs a single pass if the maintenance lock is free.
func (m *Maintainer) RunOnce(ctx context.Context) (MaintenanceReport, error) {
	key := m.lockKey()
	ok, err := m.lock.TryAcquire(ctx, key, m.lockTTL)
	if err != nil {
		return MaintenanceReport{}, fmt.Errorf("acquire %s: %w", key, err)
	}
	if !ok {
		m.logger.Debug("Maintainer: Lock %s held elsewhere, skipping", key)
		return MaintenanceReport{Skipped: true}, nil
	}
	defer func() {
		if err := m.lock.Release(context.Background(), key); err != nil {
			m.logger.Warn("Maintainer: Failed to release %s: %v", key, err)
		}
	}()

	var report MaintenanceReport
	if m.slates != nil {
		purged, err := m.slates.PurgeExpiredSlates(ctx, m.now())
		if err != nil {
			m.record("failed")
			return report, fmt.Errorf("purge slates: %w", err)
		}
		report.PurgedSlates = purged
	}

	seeded, err := m.pool.SeedCounters(ctx, m.namespace)
	if err != nil {
		m.record("failed")
		return report, fmt.Errorf("seed counters: %w", err)
	}
	report.SeededCounters = seeded

	m.record("ok")
	m.logger.Info("Maintainer: Purged %d slates, seeded %d counters", report.PurgedSlates, report.SeededCounters)
	return report, nil
}

// Start runs RunOnce every interval until ctx is done.
func (m *Maintainer) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := m.RunOnce(ctx); err != nil {
					m.logger.Error("Maintainer: Pass failed: %v", err)
				}
			}
		}
	}()
}

func (m *Maintainer) record(result string) {
	m.metrics.CounterAdd(MetricMaintenanceRuns, map[string]string{"namespace": m.namespace, "result": result}, 1)
}
