// Package otel publishes engine metrics through an OpenTelemetry Meter.
//
// Counters become Int64ObservableCounters. A latency histogram becomes a
// <name>_bucket gauge carrying one cumulative point per "le" attribute plus
// a <name>_count gauge. A single callback takes one snapshot per collection;
// the caller owns the MeterProvider.
package otel
