package ports

// MetricsPort records operational counters.
type MetricsPort interface {
	CounterAdd(name string, tags map[string]string, delta int64)
}

// NoopMetrics discards every measurement.
type NoopMetrics struct{}

func (NoopMetrics) CounterAdd(string, map[string]string, int64) {}
