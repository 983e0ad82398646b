// Package bus is the change-notification fan-out between the indexer and
// the UI layer. Subscribers get a buffered channel per subscription;
// publishing never blocks, a full subscriber simply misses the change.
package bus

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// Topic identifies the entity type a change belongs to.
type Topic string

const (
	TopicCards       Topic = "cards"
	TopicOffers      Topic = "offers"
	TopicExecutions  Topic = "executions"
	TopicCollections Topic = "collections"
	TopicPortfolios  Topic = "portfolios"
)

// DefaultBufferSize is the per-subscriber channel capacity.
const DefaultBufferSize = 256

// Change is one materialized-view update.
type Change struct {
	Topic  Topic  // entity type
	Action string // "created", "updated", "executed", "cancelled"
	Key    string // record key (card id, event id or pubkey)
	Record any    // the updated materialized record
}

type subscriber struct {
	topics map[Topic]struct{}
	ch     chan Change
}

// Bus delivers Changes to topic subscribers.
type Bus struct {
	logger *slog.Logger

	mu      sync.RWMutex
	subs    map[*subscriber]struct{}
	dropped atomic.Int64
}

// New creates an empty bus.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// Subscribe registers for the given topics (all topics when none are
// given) and returns the delivery channel plus a cancel function. The
// channel is closed on cancel.
func (b *Bus) Subscribe(topics ...Topic) (<-chan Change, func()) {
	sub := &subscriber{
		ch: make(chan Change, DefaultBufferSize),
	}
	if len(topics) > 0 {
		sub.topics = make(map[Topic]struct{}, len(topics))
		for _, t := range topics {
			sub.topics[t] = struct{}{}
		}
	}

	b.mu.Lock()
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if _, ok := b.subs[sub]; ok {
			delete(b.subs, sub)
			close(sub.ch)
		}
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// Publish delivers the change to every matching subscriber without
// blocking. Slow subscribers drop.
func (b *Bus) Publish(c Change) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for sub := range b.subs {
		if sub.topics != nil {
			if _, ok := sub.topics[c.Topic]; !ok {
				continue
			}
		}
		select {
		case sub.ch <- c:
		default:
			b.dropped.Add(1)
			b.logger.Warn("subscriber buffer full, dropping change",
				"topic", c.Topic,
				"key", c.Key,
			)
		}
	}
}

// Dropped returns the number of changes dropped due to full subscribers.
func (b *Bus) Dropped() int64 {
	return b.dropped.Load()
}
