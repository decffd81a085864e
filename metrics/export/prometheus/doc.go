// Package prometheus exports goShop client metrics through
// prometheus/client_golang.
//
// [NewPrometheusExporter] wraps a [goShop.Client] in a collector registered
// with a private registry. Counter names are goshop_*_total; the request
// latency histogram is goshop_request_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry. Callers mount Handler
//     or register Collector themselves.
//   - Mutate client state.
package prometheus
