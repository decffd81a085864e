// Package otel publishes goShop client metrics as OpenTelemetry observable
// instruments.
//
// [New] registers an Int64ObservableCounter per counter. The latency
// histogram becomes one bucket gauge with an le attribute per upper bound,
// plus monotonic count and sum instruments. A single callback reads
// [goShop.Client.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the provider or the Meter.
//   - Mutate client state.
package otel
