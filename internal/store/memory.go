package store

import (
	"context"
	"sync"

	"github.com/cardbazaar/ledger/internal/event"
)

// Memory is the in-process event log. Events are kept in acceptance
// order; reads take a shared lock so many readers never contend with
// each other.
type Memory struct {
	mu     sync.RWMutex
	events []*event.Event
	ids    map[string]struct{}
}

// NewMemory creates an empty in-memory event log.
func NewMemory() *Memory {
	return &Memory{
		ids: make(map[string]struct{}),
	}
}

// Save appends the event unless its id is already stored.
func (m *Memory) Save(ctx context.Context, ev *event.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.ids[ev.ID]; ok {
		return nil
	}
	m.ids[ev.ID] = struct{}{}
	m.events = append(m.events, ev)
	return nil
}

// Query returns stored events matching any filter, in insertion order.
func (m *Memory) Query(ctx context.Context, filters []event.Filter) ([]*event.Event, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*event.Event
	for _, ev := range m.events {
		if event.MatchesAny(filters, ev) {
			out = append(out, ev)
		}
	}
	return out, nil
}

// Count returns the number of stored events matching any filter.
func (m *Memory) Count(ctx context.Context, filters []event.Filter) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, ev := range m.events {
		if event.MatchesAny(filters, ev) {
			n++
		}
	}
	return n, nil
}

// Replay invokes fn for every stored event in insertion order.
func (m *Memory) Replay(ctx context.Context, fn func(*event.Event) error) error {
	m.mu.RLock()
	events := make([]*event.Event, len(m.events))
	copy(events, m.events)
	m.mu.RUnlock()

	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(ev); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored events.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Close is a no-op for the memory backend.
func (m *Memory) Close() {}
