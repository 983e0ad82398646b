// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Relay admission counters (accepted, rejected by reason)
//   - Broadcast volume and open subscription count
//   - Indexer fold counters per kind and the processed watermark
package metrics
