// Package relay implements the WebSocket protocol endpoint.
//
// The relay:
//   - Speaks the four-message client protocol (EVENT, REQ, CLOSE, COUNT)
//   - Validates events (kind range, schema, signature) and rate-limits signers
//   - Persists accepted events to the event log and hands them to the indexer
//   - Fans accepted events out to matching subscriptions
//
// All protocol state (subscription table, rate-limit table) is owned by a
// single dispatch goroutine; sessions only parse frames and push replies
// through a buffered outbound channel, so a slow client can never stall
// other clients or the indexer.
package relay
