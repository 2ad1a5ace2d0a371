// Package prometheus exposes the engine's in-process metrics as a
// [prometheus.Collector] from client_golang.
//
// [NewCollector] reads [otpauth.Engine.MetricsSnapshot] on every scrape and
// emits constant metrics, so the engine's hot path never touches a
// Prometheus type. Counter names are otpauth_*_total; latency histograms are
// otpauth_*_latency_seconds.
//
// # What this package must NOT do
//
//   - Register with the global Prometheus registry; callers choose the
//     registry.
//   - Mutate engine state.
package prometheus
