package prometheus

import (
	"bytes"
	"net/http"

	goShop "github.com/MrEthical07/goShop"
	"github.com/MrEthical07/goShop/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"
)

type metricsSource interface {
	MetricsSnapshot() goShop.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter exposes client metrics through a private Prometheus
// registry.
type PrometheusExporter struct {
	collector *collector
	registry  *prometheus.Registry
}

// NewPrometheusExporter creates an exporter that reads from client.
func NewPrometheusExporter(client *goShop.Client) *PrometheusExporter {
	return NewPrometheusExporterFromSource(client)
}

// NewPrometheusExporterFromSource creates an exporter from any snapshot source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	c := newCollector(source)
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	return &PrometheusExporter{collector: c, registry: reg}
}

// Collector returns the underlying collector for callers that want to
// register it with their own registry.
func (p *PrometheusExporter) Collector() prometheus.Collector {
	return p.collector
}

// Handler returns an http.Handler serving the exporter's registry.
func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Render returns the current metrics in text exposition format. It returns
// an empty string when there is nothing to report.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.registry == nil {
		return ""
	}
	families, err := p.registry.Gather()
	if err != nil || len(families) == 0 {
		return ""
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return ""
		}
	}
	return buf.String()
}

/*
====================================
COLLECTOR
====================================
*/

type counterDesc struct {
	id   goShop.MetricID
	desc *prometheus.Desc
}

type collector struct {
	source     metricsSource
	counters   []counterDesc
	histograms []counterDesc
	dropped    *prometheus.Desc
}

func newCollector(source metricsSource) *collector {
	c := &collector{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]counterDesc, 0, len(internaldefs.HistogramDefs)),
		dropped: prometheus.NewDesc(
			internaldefs.AuditDroppedName,
			"Dropped audit events due to dispatcher backpressure.",
			nil, nil,
		),
	}
	for _, def := range internaldefs.CounterDefs {
		c.counters = append(c.counters, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		c.histograms = append(c.histograms, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	return c
}

func (c *collector) Describe(ch chan<- *prometheus.Desc) {
	for _, d := range c.counters {
		ch <- d.desc
	}
	for _, d := range c.histograms {
		ch <- d.desc
	}
	ch <- c.dropped
}

// Collect emits nothing while metrics are disabled and no audit event was
// dropped.
func (c *collector) Collect(ch chan<- prometheus.Metric) {
	if c.source == nil {
		return
	}
	snapshot := c.source.MetricsSnapshot()
	dropped := c.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return
	}

	for _, d := range c.counters {
		ch <- prometheus.MustNewConstMetric(d.desc, prometheus.CounterValue, float64(snapshot.Counters[d.id]))
	}

	for _, d := range c.histograms {
		raw, ok := snapshot.Histograms[d.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, le := range internaldefs.HistogramUpperBounds {
			buckets[le] = cumulative[i]
		}
		count := cumulative[len(cumulative)-1]
		sum := snapshot.Sums[d.id].Seconds()
		ch <- prometheus.MustNewConstHistogram(d.desc, count, sum, buckets)
	}

	ch <- prometheus.MustNewConstMetric(c.dropped, prometheus.CounterValue, float64(dropped))
}
