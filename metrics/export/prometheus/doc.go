// Package prometheus exposes fitAuth Engine metrics as a Prometheus
// collector.
//
// [NewCollector] reads [fitAuth.Engine.MetricsSnapshot] on every scrape and
// emits one fitauth_*_total counter per Engine counter, the
// fitauth_authenticate_latency_seconds histogram when latency histograms
// are enabled, and fitauth_audit_dropped_total.
//
// The collector is never registered globally. Register it on your own
// registry, or use [Handler] for a ready-made /metrics endpoint.
package prometheus
