// Package otel publishes goAccount counters and the login latency histogram
// through an OpenTelemetry Meter.
//
// [New] registers an Int64ObservableCounter per counter and an
// Int64ObservableGauge per histogram bucket. One callback reads
// [goAccount.Engine.MetricsSnapshot] on each collection. Callers own the
// MeterProvider; cmd/accountd wires one with a periodic stdout reader.
package otel
