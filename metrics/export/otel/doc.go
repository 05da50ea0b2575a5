// Package otel publishes fitAuth Engine metrics through an OpenTelemetry
// meter.
//
// [NewExporter] creates an Int64ObservableCounter per Engine counter and an
// Int64ObservableGauge per latency bucket, all fed by a single callback
// reading [fitAuth.Engine.MetricsSnapshot]. The caller owns the
// MeterProvider.
package otel
