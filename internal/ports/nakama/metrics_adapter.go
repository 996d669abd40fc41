package nakama

import "pixelary/internal/ports"

type metricsAPI interface {
	MetricsCounterAdd(name string, tags map[string]string, delta int64)
}

// NakamaMetricsAdapter forwards engine counters to Nakama's metrics sink.
type NakamaMetricsAdapter struct {
	nk metricsAPI
}

// NewNakamaMetricsAdapter creates a new metrics adapter.
func NewNakamaMetricsAdapter(nk metricsAPI) *NakamaMetricsAdapter {
	return &NakamaMetricsAdapter{nk: nk}
}

func (a *NakamaMetricsAdapter) CounterAdd(name string, tags map[string]string, delta int64) {
	a.nk.MetricsCounterAdd(name, tags, delta)
}

var _ ports.MetricsPort = (*NakamaMetricsAdapter)(nil)
