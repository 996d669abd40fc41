package telemetry

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func counterValue(t *testing.T, p *Prometheus, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := p.Gatherer().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if labels[lp.GetName()] != lp.GetValue() {
					continue metrics
				}
			}
			return m.GetCounter().GetValue()
		}
	}
	return 0
}

func TestPrometheus_CounterAdd(t *testing.T) {
	p := NewPrometheus()
	tags := map[string]string{"namespace": "eu", "action": "click"}

	p.CounterAdd("wordslate_events_ingested", tags, 2)
	p.CounterAdd("wordslate_events_ingested", tags, 3)
	p.CounterAdd("wordslate_events_ingested", map[string]string{"namespace": "eu", "action": "publish"}, 1)

	if got := counterValue(t, p, "wordslate_events_ingested_total", tags); got != 5 {
		t.Fatalf("click counter = %v, want 5", got)
	}
	if got := counterValue(t, p, "wordslate_events_ingested_total", map[string]string{"namespace": "eu", "action": "publish"}); got != 1 {
		t.Fatalf("publish counter = %v, want 1", got)
	}
}

func TestPrometheus_MismatchedTagsAreDiscarded(t *testing.T) {
	p := NewPrometheus()
	p.CounterAdd("wordslate_slates_issued", map[string]string{"namespace": "eu"}, 1)

	p.CounterAdd("wordslate_slates_issued", map[string]string{"region": "eu"}, 1)
	p.CounterAdd("wordslate_slates_issued", map[string]string{"namespace": "eu", "extra": "x"}, 1)
	p.CounterAdd("wordslate_slates_issued", map[string]string{"namespace": "eu"}, -4)

	if got := counterValue(t, p, "wordslate_slates_issued_total", map[string]string{"namespace": "eu"}); got != 1 {
		t.Fatalf("issued counter = %v, want 1", got)
	}
}

func TestPrometheus_Handler(t *testing.T) {
	p := NewPrometheus()
	p.CounterAdd("wordslate_maintenance_runs", map[string]string{"namespace": "eu", "result": "ok"}, 1)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Result().Body)

	if !strings.Contains(string(body), `wordslate_maintenance_runs_total{namespace="eu",result="ok"} 1`) {
		t.Fatalf("Expected maintenance counter in exposition, got:\n%s", body)
	}
}
