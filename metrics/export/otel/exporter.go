package otel

import (
	"context"
	"errors"
	"fmt"

	goShop "github.com/MrEthical07/goShop"
	"github.com/MrEthical07/goShop/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ScopeName is the instrumentation scope used by NewFromProvider.
const ScopeName = "github.com/MrEthical07/goShop/metrics/export/otel"

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() goShop.MetricsSnapshot
	AuditDropped() uint64
}

type counterInstrument struct {
	id  goShop.MetricID
	ins metric.Int64ObservableCounter
}

// latencyInstruments hold one histogram. Buckets share a single gauge and
// are told apart by the le attribute, as in the Prometheus rendering.
type latencyInstruments struct {
	id      goShop.MetricID
	buckets metric.Int64ObservableGauge
	le      []metric.ObserveOption
	count   metric.Int64ObservableCounter
	sum     metric.Float64ObservableCounter
}

// Exporter observes a client's counters on every collection of the
// MeterProvider it was registered with.
type Exporter struct {
	source       metricsSource
	registration metric.Registration
	counters     []counterInstrument
	latency      []latencyInstruments
	auditDropped metric.Int64ObservableCounter
}

// NewFromProvider registers the client's instruments on a meter of provider
// named ScopeName.
func NewFromProvider(provider metric.MeterProvider, client *goShop.Client) (*Exporter, error) {
	if provider == nil {
		return nil, ErrNilMeter
	}
	return New(provider.Meter(ScopeName), client)
}

// New registers the client's instruments on meter.
func New(meter metric.Meter, client *goShop.Client) (*Exporter, error) {
	if client == nil {
		return nil, ErrNilSource
	}
	return NewFromSource(meter, client)
}

func NewFromSource(meter metric.Meter, source metricsSource) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	var observables []metric.Observable

	for _, def := range internaldefs.CounterDefs {
		ins, err := meter.Int64ObservableCounter(def.Name,
			metric.WithDescription(def.Help),
			metric.WithUnit("{event}"),
		)
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", def.Name, err)
		}
		e.counters = append(e.counters, counterInstrument{id: def.ID, ins: ins})
		observables = append(observables, ins)
	}

	for _, def := range internaldefs.HistogramDefs {
		li, err := newLatencyInstruments(meter, def)
		if err != nil {
			return nil, err
		}
		e.latency = append(e.latency, li)
		observables = append(observables, li.buckets, li.count, li.sum)
	}

	dropped, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription("Audit events dropped on a full queue."),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.auditDropped = dropped
	observables = append(observables, dropped)

	reg, err := meter.RegisterCallback(e.observe, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func newLatencyInstruments(meter metric.Meter, def internaldefs.HistogramDef) (latencyInstruments, error) {
	li := latencyInstruments{id: def.ID}

	var err error
	li.buckets, err = meter.Int64ObservableGauge(def.Name+"_bucket",
		metric.WithDescription(def.Help+" Cumulative count per upper bound."),
	)
	if err != nil {
		return li, fmt.Errorf("gauge %s_bucket: %w", def.Name, err)
	}
	li.count, err = meter.Int64ObservableCounter(def.Name+"_count",
		metric.WithDescription(def.Help+" Sample count."),
	)
	if err != nil {
		return li, fmt.Errorf("counter %s_count: %w", def.Name, err)
	}
	li.sum, err = meter.Float64ObservableCounter(def.Name+"_sum",
		metric.WithDescription(def.Help+" Total seconds."),
		metric.WithUnit("s"),
	)
	if err != nil {
		return li, fmt.Errorf("counter %s_sum: %w", def.Name, err)
	}

	li.le = make([]metric.ObserveOption, len(internaldefs.HistogramBounds))
	for i, bound := range internaldefs.HistogramBounds {
		li.le[i] = metric.WithAttributeSet(attribute.NewSet(attribute.String("le", bound)))
	}
	return li, nil
}

func (e *Exporter) observe(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, c := range e.counters {
		o.ObserveInt64(c.ins, int64(snap.Counters[c.id]))
	}
	for _, li := range e.latency {
		raw, ok := snap.Histograms[li.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		for i, n := range cumulative {
			o.ObserveInt64(li.buckets, int64(n), li.le[i])
		}
		o.ObserveInt64(li.count, int64(cumulative[len(cumulative)-1]))
		o.ObserveFloat64(li.sum, snap.Sums[li.id].Seconds())
	}
	o.ObserveInt64(e.auditDropped, int64(e.source.AuditDropped()))
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
