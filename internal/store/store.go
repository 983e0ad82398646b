package store

import (
	"context"

	"github.com/cardbazaar/ledger/internal/event"
)

// Store is an append-only, insertion-ordered event log. Save is
// idempotent per event id. Query and Count match events against the
// filter list with logical OR across filters; an empty list matches
// nothing.
type Store interface {
	// Save appends the event. Saving an id that is already stored is a no-op.
	Save(ctx context.Context, ev *event.Event) error

	// Query returns stored events matching any filter, in insertion order.
	Query(ctx context.Context, filters []event.Filter) ([]*event.Event, error)

	// Count returns the number of stored events matching any filter.
	Count(ctx context.Context, filters []event.Filter) (int, error)

	// Replay invokes fn for every stored event in insertion order,
	// stopping at the first error.
	Replay(ctx context.Context, fn func(*event.Event) error) error

	// Close releases backend resources.
	Close()
}
