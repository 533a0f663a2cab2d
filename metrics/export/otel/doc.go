// Package otel provides OpenTelemetry metric exporter bindings for ssokit counters and
// histograms.
//
// [NewOTelExporter] registers Int64ObservableCounter instruments for each ssokit metric
// and Int64ObservableGauge per histogram bucket. A single callback reads
// [ssokit.Coordinator.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider — callers supply the Meter.
//   - Mutate coordinator state.
package otel
