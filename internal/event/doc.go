// Package event defines the signed wire event at the heart of the card
// ledger: a minimal NIP-01 event with a content-addressed id, BIP-340
// Schnorr signatures, tag accessors, and subscription filter matching.
//
// Conventions:
//   - IDs and pubkeys: lowercase hex (pubkeys are 32-byte x-only keys)
//   - Timestamps: int64 seconds since Unix epoch
//   - Kinds: 32121-32127 are the card-market kinds (see kinds.go)
package event
