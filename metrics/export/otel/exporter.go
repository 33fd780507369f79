package otel

import (
	"context"
	"errors"
	"fmt"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/metrics/export/internaldefs"
	"go.opentelemetry.io/otel/metric"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

// Source is what the exporter reads. *goAccount.Engine satisfies it.
type Source interface {
	MetricsSnapshot() goAccount.MetricsSnapshot
	AuditDropped() uint64
}

// observeFunc reports one instrument from a snapshot taken for the current
// collection.
type observeFunc func(o metric.Observer, snap goAccount.MetricsSnapshot)

// Exporter keeps the instruments registered on a Meter until Close.
type Exporter struct {
	source       Source
	observers    []observeFunc
	instruments  []metric.Observable
	registration metric.Registration
}

// New registers observable instruments for every goAccount metric on meter
// and a callback that reads source at collection time.
func New(meter metric.Meter, source Source) (*Exporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &Exporter{source: source}
	for _, def := range internaldefs.CounterDefs {
		if err := e.addCounter(meter, def); err != nil {
			return nil, err
		}
	}
	for _, def := range internaldefs.HistogramDefs {
		if err := e.addHistogram(meter, def); err != nil {
			return nil, err
		}
	}
	if err := e.addAuditDropped(meter); err != nil {
		return nil, err
	}

	reg, err := meter.RegisterCallback(e.collect, e.instruments...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *Exporter) collect(_ context.Context, o metric.Observer) error {
	snap := e.source.MetricsSnapshot()
	for _, observe := range e.observers {
		observe(o, snap)
	}
	return nil
}

func (e *Exporter) addCounter(meter metric.Meter, def internaldefs.CounterDef) error {
	c, err := meter.Int64ObservableCounter(def.Name, metric.WithDescription(def.Help), metric.WithUnit("{event}"))
	if err != nil {
		return fmt.Errorf("counter %s: %w", def.Name, err)
	}
	id := def.ID
	e.instruments = append(e.instruments, c)
	e.observers = append(e.observers, func(o metric.Observer, snap goAccount.MetricsSnapshot) {
		o.ObserveInt64(c, int64(snap.Counters[id]))
	})
	return nil
}

// addHistogram exposes each cumulative bucket as a gauge named
// <name>_bucket_le_<bound>, plus <name>_count.
func (e *Exporter) addHistogram(meter metric.Meter, def internaldefs.HistogramDef) error {
	var buckets [8]metric.Int64ObservableGauge
	for i, suffix := range internaldefs.HistogramBoundSuffix {
		name := def.Name + "_bucket_le_" + suffix
		g, err := meter.Int64ObservableGauge(name, metric.WithDescription(def.Help+" Cumulative bucket."))
		if err != nil {
			return fmt.Errorf("bucket %s: %w", name, err)
		}
		buckets[i] = g
		e.instruments = append(e.instruments, g)
	}
	count, err := meter.Int64ObservableGauge(def.Name+"_count", metric.WithDescription(def.Help+" Sample count."))
	if err != nil {
		return fmt.Errorf("count %s: %w", def.Name, err)
	}
	e.instruments = append(e.instruments, count)

	id := def.ID
	e.observers = append(e.observers, func(o metric.Observer, snap goAccount.MetricsSnapshot) {
		cum := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(snap.Histograms[id]))
		for i, g := range buckets {
			o.ObserveInt64(g, int64(cum[i]))
		}
		o.ObserveInt64(count, int64(cum[len(cum)-1]))
	})
	return nil
}

func (e *Exporter) addAuditDropped(meter metric.Meter) error {
	c, err := meter.Int64ObservableCounter(internaldefs.AuditDroppedName,
		metric.WithDescription("Audit events dropped under dispatcher backpressure."),
		metric.WithUnit("{event}"))
	if err != nil {
		return fmt.Errorf("counter %s: %w", internaldefs.AuditDroppedName, err)
	}
	e.instruments = append(e.instruments, c)
	e.observers = append(e.observers, func(o metric.Observer, _ goAccount.MetricsSnapshot) {
		o.ObserveInt64(c, int64(e.source.AuditDropped()))
	})
	return nil
}

// Close unregisters the collection callback.
func (e *Exporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
