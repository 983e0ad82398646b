// Package indexer folds validated events into materialized views.
//
// A single writer goroutine consumes events from a growable queue and
// updates five tables (cards, offers, executions, collections,
// portfolios) plus a processed-timestamp watermark. Reads go through an
// RWMutex so any number of readers can query views without touching the
// writer. Bad references (an execution or cancel naming an unknown
// offer, an unparseable "d" tag) are logged and skipped, never raised:
// one bad event must not stall the fold of later events.
package indexer
