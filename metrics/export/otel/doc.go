// Package otel binds engine metrics to OpenTelemetry instruments.
//
// [New] registers an Int64ObservableCounter per engine counter and
// Int64ObservableGauge per histogram bucket; one callback reads
// [gsnauth.Engine.MetricsSnapshot] on each collection cycle. Callers
// supply the Meter; this package never owns a MeterProvider.
package otel
