// Package metrics exposes the hub's Prometheus counters and gauges.
//
// Components receive a *Metrics and call its recording methods; a nil
// *Metrics is a valid no-op. The API serves the registry at
// /api/v1/metrics/prometheus and a JSON Snapshot at /api/v1/metrics.
package metrics
