// Package telemetry exports engine counters to Prometheus.
package telemetry

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"pixelary/internal/ports"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus implements ports.MetricsPort on a dedicated registry.
// Counter vectors are created on first use; the label names of a metric are
// fixed by the tags of its first sample.
type Prometheus struct {
	registry *prometheus.Registry
	factory  promauto.Factory

	mu       sync.Mutex
	counters map[string]*counter
}

type counter struct {
	vec    *prometheus.CounterVec
	labels []string
}

// NewPrometheus creates an adapter with Go runtime and process collectors registered.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &Prometheus{
		registry: reg,
		factory:  promauto.With(reg),
		counters: make(map[string]*counter),
	}
}

// CounterAdd adds delta to the named counter. Samples whose tag keys differ
// from the first sample of that metric are discarded.
func (p *Prometheus) CounterAdd(name string, tags map[string]string, delta int64) {
	if delta < 0 {
		return
	}
	c := p.counter(name, tags)
	values := make([]string, len(c.labels))
	for i, l := range c.labels {
		v, ok := tags[l]
		if !ok {
			return
		}
		values[i] = v
	}
	if len(tags) != len(c.labels) {
		return
	}
	m, err := c.vec.GetMetricWithLabelValues(values...)
	if err != nil {
		return
	}
	m.Add(float64(delta))
}

func (p *Prometheus) counter(name string, tags map[string]string) *counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}

	labels := make([]string, 0, len(tags))
	for k := range tags {
		labels = append(labels, k)
	}
	sort.Strings(labels)

	metricName := name
	if !strings.HasSuffix(metricName, "_total") {
		metricName += "_total"
	}
	c := &counter{
		vec: p.factory.NewCounterVec(prometheus.CounterOpts{
			Name: metricName,
			Help: "Word slate engine counter " + name + ".",
		}, labels),
		labels: labels,
	}
	p.counters[name] = c
	return c
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Gatherer exposes the registry for tests and embedding.
func (p *Prometheus) Gatherer() prometheus.Gatherer {
	return p.registry
}

var _ ports.MetricsPort = (*Prometheus)(nil)
