// Package store implements the append-only event log behind the relay.
//
// Backends:
//   - Memory: the reference semantics, events live in process memory only
//   - Postgres: durable log, insertion-ordered, id-idempotent inserts
//
// All backends preserve acceptance order and treat a re-save of an
// already stored id as a no-op, which is what makes indexer rebuild
// replay safe.
package store
