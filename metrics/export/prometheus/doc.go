// Package prometheus renders coursegate engine metrics in Prometheus text
// exposition format.
//
// Counter names are prefixed coursegate_*_total; the single histogram is
// coursegate_resolve_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
