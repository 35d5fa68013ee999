package middleware

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gathered returns the value of the first sample of family name whose
// labels include want. Counters report their value, histograms their count.
func gathered(t *testing.T, pm *PrometheusMetrics, name string, want map[string]string) (float64, bool) {
	t.Helper()
	families, err := pm.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
	metrics:
		for _, m := range mf.GetMetric() {
			got := map[string]string{}
			for _, lp := range m.GetLabel() {
				got[lp.GetName()] = lp.GetValue()
			}
			for k, v := range want {
				if got[k] != v {
					continue metrics
				}
			}
			switch {
			case m.GetCounter() != nil:
				return m.GetCounter().GetValue(), true
			case m.GetGauge() != nil:
				return m.GetGauge().GetValue(), true
			case m.GetHistogram() != nil:
				return float64(m.GetHistogram().GetSampleCount()), true
			}
		}
	}
	return 0, false
}

func TestRecordCounterRouting(t *testing.T) {
	tests := []struct {
		name   string
		metric string
		labels map[string]string
		family string
		want   map[string]string
	}{
		{
			name:   "verdicts",
			metric: "verdicts_total",
			labels: map[string]string{"criterion": "S01", "status": "ok"},
			family: "galley_verdicts_total",
			want:   map[string]string{"criterion": "S01", "status": "ok"},
		},
		{
			name:   "llm requests",
			metric: "llm_requests_total",
			labels: map[string]string{"provider": "openai", "model": "gpt-4o-mini", "status": "success"},
			family: "galley_llm_requests_total",
			want:   map[string]string{"provider": "openai", "status": "success"},
		},
		{
			name:   "llm tokens",
			metric: "llm_tokens_total",
			labels: map[string]string{"provider": "openai", "model": "gpt-4o-mini", "token_type": "input"},
			family: "galley_llm_tokens_total",
			want:   map[string]string{"token_type": "input"},
		},
		{
			name:   "missing labels become unknown",
			metric: "verdicts_total",
			labels: nil,
			family: "galley_verdicts_total",
			want:   map[string]string{"criterion": "unknown", "status": "unknown"},
		},
		{
			name:   "fallback",
			metric: "cache_hits",
			family: "galley_events_total",
			want:   map[string]string{"metric": "cache_hits"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pm := NewPrometheusMetrics()
			pm.RecordCounter(tt.metric, 2, tt.labels)
			pm.RecordCounter(tt.metric, 1, tt.labels)

			got, ok := gathered(t, pm, tt.family, tt.want)
			require.True(t, ok, "family %s not found", tt.family)
			assert.Equal(t, 3.0, got)
		})
	}
}

func TestRecordCounterIgnoresNegative(t *testing.T) {
	pm := NewPrometheusMetrics()
	assert.NotPanics(t, func() { pm.RecordCounter("verdicts_total", -1, nil) })
	_, ok := gathered(t, pm, "galley_verdicts_total", nil)
	assert.False(t, ok)
}

func TestRecordLatencyRouting(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.RecordLatency("provider_extract", 120*time.Millisecond, map[string]string{"provider": "fonts", "status": "success"})
	pm.RecordLatency("report_pass", 2*time.Second, map[string]string{"memoize": "true"})
	pm.RecordLatency("judge", time.Second, nil)

	n, ok := gathered(t, pm, "galley_provider_duration_seconds", map[string]string{"provider": "fonts"})
	require.True(t, ok)
	assert.Equal(t, 1.0, n)

	n, ok = gathered(t, pm, "galley_report_duration_seconds", map[string]string{"memoize": "true"})
	require.True(t, ok)
	assert.Equal(t, 1.0, n)

	n, ok = gathered(t, pm, "galley_operation_duration_seconds", map[string]string{"operation": "judge"})
	require.True(t, ok)
	assert.Equal(t, 1.0, n)
}

func TestRecordGaugeAndHistogram(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.RecordGauge("llm_circuit_state", 1, map[string]string{"provider": "google"})
	pm.RecordGauge("queue_depth", 7, nil)
	pm.RecordHistogram("llm_latency_seconds", 1.5, map[string]string{"provider": "google", "model": "gemini", "status": "success"})

	v, ok := gathered(t, pm, "galley_llm_circuit_state", map[string]string{"provider": "google"})
	require.True(t, ok)
	assert.Equal(t, 1.0, v)

	v, ok = gathered(t, pm, "galley_gauge", map[string]string{"metric": "queue_depth"})
	require.True(t, ok)
	assert.Equal(t, 7.0, v)

	v, ok = gathered(t, pm, "galley_llm_latency_seconds", map[string]string{"model": "gemini"})
	require.True(t, ok)
	assert.Equal(t, 1.0, v)
}

func TestInstancesDoNotShareState(t *testing.T) {
	a, b := NewPrometheusMetrics(), NewPrometheusMetrics()
	a.RecordCounter("verdicts_total", 1, map[string]string{"criterion": "G01", "status": "ok"})

	_, ok := gathered(t, b, "galley_verdicts_total", nil)
	assert.False(t, ok)
}

func TestWriteTextfile(t *testing.T) {
	pm := NewPrometheusMetrics()
	pm.RecordCounter("verdicts_total", 1, map[string]string{"criterion": "G01", "status": "error"})

	path := filepath.Join(t.TempDir(), "galley.prom")
	require.NoError(t, pm.WriteTextfile(path))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `galley_verdicts_total{criterion="G01",status="error"} 1`)
	assert.Contains(t, string(raw), "# HELP galley_verdicts_total")

	err = pm.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "galley.prom"))
	assert.Error(t, err)
}
