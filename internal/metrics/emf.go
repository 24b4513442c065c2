package metrics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/kvs-playback/internal/log"
)

// DefaultNamespace is the CloudWatch namespace flushed records are filed under.
const DefaultNamespace = "KVSPlayback"

const namePrefix = "kvsplayback_"

// Flusher writes what the registry recorded since the previous flush as one
// CloudWatch embedded metric format log record. The Lambda handler flushes
// after every invocation.
type Flusher struct {
	gatherer  prometheus.Gatherer
	namespace string
	now       func() time.Time

	mu   sync.Mutex
	last map[string]float64
}

// NewFlusher reads from g, or prometheus.DefaultGatherer when g is nil.
func NewFlusher(g prometheus.Gatherer, namespace string) *Flusher {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Flusher{
		gatherer:  g,
		namespace: namespace,
		now:       time.Now,
		last:      make(map[string]float64),
	}
}

type emfMetric struct {
	Name string `json:"Name"`
	Unit string `json:"Unit"`
}

type emfDirective struct {
	Namespace  string      `json:"Namespace"`
	Dimensions [][]string  `json:"Dimensions"`
	Metrics    []emfMetric `json:"Metrics"`
}

type emfMetadata struct {
	Timestamp         int64          `json:"Timestamp"`
	CloudWatchMetrics []emfDirective `json:"CloudWatchMetrics"`
}

type delta struct {
	name  string
	unit  string
	value float64
}

// Flush logs counter and histogram deltas since the last call and returns how
// many metrics the record carried. Nothing is logged when nothing moved.
// Gauges are skipped.
func (f *Flusher) Flush(logger zerolog.Logger) (int, error) {
	if f == nil {
		return 0, nil
	}
	families, err := f.gatherer.Gather()
	if err != nil {
		return 0, fmt.Errorf("gather metrics: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	var deltas []delta
	for _, fam := range families {
		if !strings.HasPrefix(fam.GetName(), namePrefix) {
			continue
		}
		for _, m := range fam.GetMetric() {
			name := seriesName(fam.GetName(), m.GetLabel())
			switch fam.GetType() {
			case dto.MetricType_COUNTER:
				deltas = f.appendDelta(deltas, name, "Count", m.GetCounter().GetValue())
			case dto.MetricType_HISTOGRAM:
				h := m.GetHistogram()
				sumUnit := "None"
				if strings.HasSuffix(fam.GetName(), "_seconds") {
					sumUnit = "Seconds"
				}
				deltas = f.appendDelta(deltas, name+":count", "Count", float64(h.GetSampleCount()))
				deltas = f.appendDelta(deltas, name+":sum", sumUnit, h.GetSampleSum())
			}
		}
	}
	if len(deltas) == 0 {
		return 0, nil
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i].name < deltas[j].name })

	defs := make([]emfMetric, 0, len(deltas))
	for _, d := range deltas {
		defs = append(defs, emfMetric{Name: d.name, Unit: d.unit})
	}
	meta, err := json.Marshal(emfMetadata{
		Timestamp: f.now().UnixMilli(),
		CloudWatchMetrics: []emfDirective{{
			Namespace:  f.namespace,
			Dimensions: [][]string{{"service"}},
			Metrics:    defs,
		}},
	})
	if err != nil {
		return 0, fmt.Errorf("encode metric metadata: %w", err)
	}

	ev := logger.Log().
		RawJSON("_aws", meta).
		Str(xglog.FieldEvent, "metrics.flush")
	for _, d := range deltas {
		ev = ev.Float64(d.name, d.value)
	}
	ev.Msg("metrics flushed")
	return len(deltas), nil
}

func (f *Flusher) appendDelta(out []delta, name, unit string, value float64) []delta {
	d := value - f.last[name]
	f.last[name] = value
	if d <= 0 {
		return out
	}
	return append(out, delta{name: name, unit: unit, value: d})
}

// seriesName flattens labels into the metric name, e.g.
// kvsplayback_invocations_total:cold_start=true:trigger=lambda.
func seriesName(name string, labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return name
	}
	pairs := make([]string, 0, len(labels))
	for _, lp := range labels {
		pairs = append(pairs, lp.GetName()+"="+lp.GetValue())
	}
	sort.Strings(pairs)
	return name + ":" + strings.Join(pairs, ":")
}
