package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) (*prometheus.Registry, *prometheus.CounterVec, prometheus.Histogram) {
	t.Helper()
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kvsplayback_test_total",
		Help: "test counter",
	}, []string{"stage"})
	hist := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: "kvsplayback_test_seconds",
		Help: "test histogram",
	})
	other := prometheus.NewCounter(prometheus.CounterOpts{Name: "unrelated_total", Help: "ignored"})
	gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: "kvsplayback_test_in_flight", Help: "ignored"})
	reg.MustRegister(counter, hist, other, gauge)
	other.Inc()
	gauge.Set(3)
	return reg, counter, hist
}

func decodeRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	return rec
}

func TestFlusher_WritesDeltasAsEMF(t *testing.T) {
	reg, counter, hist := newTestRegistry(t)
	f := NewFlusher(reg, "")
	f.now = func() time.Time { return time.UnixMilli(1700000000000) }

	counter.WithLabelValues("list_streams").Add(2)
	hist.Observe(0.5)

	var buf bytes.Buffer
	n, err := f.Flush(zerolog.New(&buf).With().Str("service", "test").Logger())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	rec := decodeRecord(t, &buf)
	assert.Equal(t, "metrics.flush", rec["event"])
	assert.Equal(t, 2.0, rec["kvsplayback_test_total:stage=list_streams"])
	assert.Equal(t, 1.0, rec["kvsplayback_test_seconds:count"])
	assert.Equal(t, 0.5, rec["kvsplayback_test_seconds:sum"])
	assert.NotContains(t, rec, "unrelated_total")
	assert.NotContains(t, rec, "kvsplayback_test_in_flight")

	aws, ok := rec["_aws"].(map[string]any)
	require.True(t, ok, "missing _aws metadata")
	assert.Equal(t, 1700000000000.0, aws["Timestamp"])
	directives, ok := aws["CloudWatchMetrics"].([]any)
	require.True(t, ok)
	require.Len(t, directives, 1)
	directive := directives[0].(map[string]any)
	assert.Equal(t, DefaultNamespace, directive["Namespace"])
	assert.Equal(t, []any{[]any{"service"}}, directive["Dimensions"])
	assert.Len(t, directive["Metrics"], 3)
}

func TestFlusher_OnlyReportsChanges(t *testing.T) {
	reg, counter, _ := newTestRegistry(t)
	f := NewFlusher(reg, "Custom")

	counter.WithLabelValues("session_url").Inc()
	var buf bytes.Buffer
	_, err := f.Flush(zerolog.New(&buf))
	require.NoError(t, err)

	buf.Reset()
	n, err := f.Flush(zerolog.New(&buf))
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, buf.Len(), "nothing moved, nothing logged")

	counter.WithLabelValues("session_url").Add(3)
	n, err = f.Flush(zerolog.New(&buf))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	rec := decodeRecord(t, &buf)
	assert.Equal(t, 3.0, rec["kvsplayback_test_total:stage=session_url"])
}

func TestFlusher_NilIsNoop(t *testing.T) {
	var f *Flusher
	n, err := f.Flush(zerolog.Nop())
	require.NoError(t, err)
	assert.Zero(t, n)
}
