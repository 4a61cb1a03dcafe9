package otel

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/metrics/export/internaldefs"
)

var (
	ErrNilMeter  = errors.New("nil meter")
	ErrNilSource = errors.New("nil metrics source")
)

type metricsSource interface {
	MetricsSnapshot() sessionauth.MetricsSnapshot
	AuditDropped() uint64
	AuditFailed() uint64
}

// reading is what one collection sees. The snapshot is taken once per
// callback so every instrument reports the same moment.
type reading struct {
	snapshot sessionauth.MetricsSnapshot
	source   metricsSource
}

// binding pairs an instrument with the function that produces its points.
type binding struct {
	ins     metric.Int64Observable
	observe func(metric.Observer, metric.Int64Observable, reading)
}

// OTelExporter keeps the callback registration alive until Close.
type OTelExporter struct {
	source       metricsSource
	bindings     []binding
	registration metric.Registration
}

// NewOTelExporter registers instruments on meter that read from engine.
func NewOTelExporter(meter metric.Meter, engine *sessionauth.Engine) (*OTelExporter, error) {
	return NewOTelExporterFromSource(meter, engine)
}

// NewOTelExporterFromSource is NewOTelExporter for any snapshot provider.
func NewOTelExporterFromSource(meter metric.Meter, source metricsSource) (*OTelExporter, error) {
	if meter == nil {
		return nil, ErrNilMeter
	}
	if source == nil {
		return nil, ErrNilSource
	}

	e := &OTelExporter{source: source}

	for _, def := range internaldefs.CounterDefs {
		id := def.ID
		if err := e.counter(meter, def.Name, def.Help, func(r reading) uint64 {
			return r.snapshot.Counters[id]
		}); err != nil {
			return nil, err
		}
	}
	for _, def := range internaldefs.HistogramDefs {
		if err := e.histogram(meter, def); err != nil {
			return nil, err
		}
	}
	if err := e.counter(meter, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, func(r reading) uint64 {
		return r.source.AuditDropped()
	}); err != nil {
		return nil, err
	}
	if err := e.counter(meter, internaldefs.AuditFailedName, internaldefs.AuditFailedHelp, func(r reading) uint64 {
		return r.source.AuditFailed()
	}); err != nil {
		return nil, err
	}

	observables := make([]metric.Observable, len(e.bindings))
	for i, b := range e.bindings {
		observables[i] = b.ins
	}
	reg, err := meter.RegisterCallback(e.collect, observables...)
	if err != nil {
		return nil, fmt.Errorf("register callback: %w", err)
	}
	e.registration = reg
	return e, nil
}

func (e *OTelExporter) counter(meter metric.Meter, name, help string, value func(reading) uint64) error {
	ins, err := meter.Int64ObservableCounter(name, metric.WithDescription(help))
	if err != nil {
		return fmt.Errorf("create observable counter %s: %w", name, err)
	}
	e.bindings = append(e.bindings, binding{
		ins: ins,
		observe: func(o metric.Observer, ins metric.Int64Observable, r reading) {
			o.ObserveInt64(ins, int64(value(r)))
		},
	})
	return nil
}

// histogram exposes a snapshot histogram as two gauges: <name>_bucket with
// one cumulative point per le attribute, and <name>_count.
func (e *OTelExporter) histogram(meter metric.Meter, def internaldefs.HistogramDef) error {
	bucketName := def.Name + "_bucket"
	buckets, err := meter.Int64ObservableGauge(bucketName, metric.WithDescription(def.Help+" Cumulative bucket counts."))
	if err != nil {
		return fmt.Errorf("create histogram bucket gauge %s: %w", bucketName, err)
	}
	countName := def.Name + "_count"
	count, err := meter.Int64ObservableGauge(countName, metric.WithDescription(def.Help+" Sample count."))
	if err != nil {
		return fmt.Errorf("create histogram count gauge %s: %w", countName, err)
	}

	var les [internaldefs.BucketCount]metric.ObserveOption
	for i, le := range internaldefs.HistogramBounds {
		les[i] = metric.WithAttributes(attribute.String("le", le))
	}
	cumulative := func(r reading) [internaldefs.BucketCount]uint64 {
		return internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(r.snapshot.Histograms[def.ID]))
	}

	e.bindings = append(e.bindings,
		binding{
			ins: buckets,
			observe: func(o metric.Observer, ins metric.Int64Observable, r reading) {
				for i, n := range cumulative(r) {
					o.ObserveInt64(ins, int64(n), les[i])
				}
			},
		},
		binding{
			ins: count,
			observe: func(o metric.Observer, ins metric.Int64Observable, r reading) {
				c := cumulative(r)
				o.ObserveInt64(ins, int64(c[internaldefs.BucketCount-1]))
			},
		},
	)
	return nil
}

func (e *OTelExporter) collect(_ context.Context, o metric.Observer) error {
	r := reading{snapshot: e.source.MetricsSnapshot(), source: e.source}
	for _, b := range e.bindings {
		b.observe(o, b.ins, r)
	}
	return nil
}

// Close unregisters the callback.
func (e *OTelExporter) Close() error {
	if e == nil || e.registration == nil {
		return nil
	}
	return e.registration.Unregister()
}
