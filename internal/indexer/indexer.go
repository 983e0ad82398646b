package indexer

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/cardbazaar/ledger/internal/bus"
	"github.com/cardbazaar/ledger/internal/event"
	"github.com/cardbazaar/ledger/internal/metrics"
	"github.com/cardbazaar/ledger/internal/store"
)

// Config holds indexer settings.
type Config struct {
	QueueSize int // initial event queue capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{QueueSize: 1024}
}

// Indexer is the single-writer fold engine over the materialized views.
type Indexer struct {
	logger  *slog.Logger
	bus     *bus.Bus
	metrics *metrics.Metrics
	replay  store.Store // rebuild source, may be nil

	queue *eventQueue
	wg    sync.WaitGroup

	// foldMu serializes the fold loop against Rebuild so there is
	// exactly one writer at any time.
	foldMu sync.Mutex

	// mu guards the view tables for concurrent readers.
	mu          sync.RWMutex
	cards       map[string]Card
	offers      map[string]Offer
	executions  map[string]Execution
	collections map[string]Collection
	portfolios  map[string]Portfolio
	seen        map[string]struct{}
	watermark   int64
}

// New creates an indexer. The replay store may be nil, in which case
// Rebuild only clears state. The bus and metrics may be nil.
func New(cfg Config, replay store.Store, b *bus.Bus, m *metrics.Metrics, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueSize < 1 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	return &Indexer{
		logger:      logger,
		bus:         b,
		metrics:     m,
		replay:      replay,
		queue:       newEventQueue(cfg.QueueSize),
		cards:       make(map[string]Card),
		offers:      make(map[string]Offer),
		executions:  make(map[string]Execution),
		collections: make(map[string]Collection),
		portfolios:  make(map[string]Portfolio),
		seen:        make(map[string]struct{}),
	}
}

// Start launches the fold loop.
func (i *Indexer) Start(ctx context.Context) error {
	i.wg.Add(1)
	go i.foldLoop()
	i.logger.Info("indexer started", "queue_len", i.queue.len())
	return nil
}

// Stop closes the queue and waits for the fold loop to drain.
func (i *Indexer) Stop(ctx context.Context) error {
	i.queue.close()

	done := make(chan struct{})
	go func() {
		i.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		i.logger.Info("indexer stopped")
	case <-ctx.Done():
		i.logger.Warn("indexer stop timed out")
	}
	return nil
}

// Submit queues an event for folding. Returns false after Stop.
func (i *Indexer) Submit(ev *event.Event) bool {
	return i.queue.send(ev)
}

// Process folds one event synchronously. The relay uses Submit; Process
// exists for replay and for callers that need the views updated before
// returning.
func (i *Indexer) Process(ev *event.Event) {
	i.foldMu.Lock()
	defer i.foldMu.Unlock()
	i.fold(ev)
}

// Rebuild clears every materialized table and the watermark, then
// replays the event log when one is attached. Clearing cannot fail;
// the returned error is only ever a replay error.
func (i *Indexer) Rebuild(ctx context.Context) error {
	i.foldMu.Lock()
	defer i.foldMu.Unlock()

	i.mu.Lock()
	i.cards = make(map[string]Card)
	i.offers = make(map[string]Offer)
	i.executions = make(map[string]Execution)
	i.collections = make(map[string]Collection)
	i.portfolios = make(map[string]Portfolio)
	i.seen = make(map[string]struct{})
	i.watermark = 0
	i.mu.Unlock()
	i.metrics.SetWatermark(0)

	if i.replay == nil {
		i.logger.Info("index rebuilt with no replay source")
		return nil
	}

	n := 0
	err := i.replay.Replay(ctx, func(ev *event.Event) error {
		i.fold(ev)
		n++
		return nil
	})
	if err != nil {
		return err
	}
	i.logger.Info("index rebuilt", "events_replayed", n)
	return nil
}

func (i *Indexer) foldLoop() {
	defer i.wg.Done()
	for {
		ev, ok := i.queue.receive()
		if !ok {
			return
		}
		i.Process(ev)
	}
}

// fold dispatches one event to its kind handler. Caller holds foldMu.
func (i *Indexer) fold(ev *event.Event) {
	i.mu.Lock()
	if _, dup := i.seen[ev.ID]; dup {
		i.mu.Unlock()
		i.logger.Debug("duplicate event skipped", "id", ev.ID)
		return
	}

	var changes []bus.Change
	applied := false

	switch ev.Kind {
	case event.KindCardDefinition:
		changes, applied = i.applyCardDefinition(ev)
	case event.KindTradeOffer:
		changes, applied = i.applyTradeOffer(ev)
	case event.KindTradeExecution:
		changes, applied = i.applyTradeExecution(ev)
	case event.KindTradeCancel:
		changes, applied = i.applyTradeCancel(ev)
	case event.KindUserCollection:
		changes, applied = i.applyUserCollection(ev)
	case event.KindPortfolioSnapshot:
		changes, applied = i.applyPortfolioSnapshot(ev)
	default:
		// Price alerts and foreign kinds are relayed but not folded.
		i.mu.Unlock()
		return
	}

	if applied {
		i.seen[ev.ID] = struct{}{}
		if ev.CreatedAt > i.watermark {
			i.watermark = ev.CreatedAt
		}
		watermark := i.watermark
		i.mu.Unlock()

		i.metrics.Folded(event.KindName(ev.Kind))
		i.metrics.SetWatermark(watermark)
		if i.bus != nil {
			for _, c := range changes {
				i.bus.Publish(c)
			}
		}
		return
	}
	i.mu.Unlock()
}

func (i *Indexer) applyCardDefinition(ev *event.Event) ([]bus.Change, bool) {
	cardID, ok := cutDTag(ev, "card:")
	if !ok {
		i.logger.Warn("card definition with unparseable d tag", "id", ev.ID)
		return nil, false
	}

	card := Card{
		CardID:     cardID,
		Provenance: provenance(ev),
	}
	card.Name, _ = ev.TagValue("name")
	card.Rarity, _ = ev.TagValue("rarity")
	card.Set, _ = ev.TagValue("set")
	card.Slug, _ = ev.TagValue("slug")
	card.Image, _ = ev.TagValue("image")
	if ev.Content != "" {
		if err := json.Unmarshal([]byte(ev.Content), &card.Content); err != nil {
			i.logger.Debug("card content is not JSON", "id", ev.ID, "error", err)
		}
	}

	i.cards[cardID] = card
	return []bus.Change{{Topic: bus.TopicCards, Action: "updated", Key: cardID, Record: card}}, true
}

func (i *Indexer) applyTradeOffer(ev *event.Event) ([]bus.Change, bool) {
	offer := Offer{
		OfferID:    ev.ID,
		Status:     OfferOpen,
		Content:    ev.Content,
		Provenance: provenance(ev),
	}
	offer.CardID, _ = ev.TagValue("card")
	offer.Type, _ = ev.TagValue("type")
	offer.ExchangeCard, _ = ev.TagValue("exchange_card")
	offer.Price = tagInt64(ev, "price")
	offer.Quantity = int(tagInt64(ev, "quantity"))
	offer.ExpiresAt = tagInt64(ev, "expires_at")

	i.offers[ev.ID] = offer
	return []bus.Change{{Topic: bus.TopicOffers, Action: "created", Key: ev.ID, Record: offer}}, true
}

func (i *Indexer) applyTradeExecution(ev *event.Event) ([]bus.Change, bool) {
	var changes []bus.Change

	offerID, _ := ev.TagValue("offer_id")
	if offerID == "" {
		offerID, _ = ev.TagValue("e")
	}

	if offer, ok := i.offers[offerID]; ok {
		offer.Status = OfferExecuted
		i.offers[offerID] = offer
		changes = append(changes, bus.Change{Topic: bus.TopicOffers, Action: "executed", Key: offerID, Record: offer})
	} else {
		i.logger.Warn("execution references unknown offer",
			"execution_id", ev.ID,
			"offer_id", offerID,
		)
	}

	exec := Execution{
		ExecutionID: ev.ID,
		OfferID:     offerID,
		Content:     ev.Content,
		Provenance:  provenance(ev),
	}
	exec.CardID, _ = ev.TagValue("card")
	exec.Quantity = int(tagInt64(ev, "quantity"))
	exec.Price = tagInt64(ev, "price")

	i.executions[ev.ID] = exec
	changes = append(changes, bus.Change{Topic: bus.TopicExecutions, Action: "created", Key: ev.ID, Record: exec})
	return changes, true
}

func (i *Indexer) applyTradeCancel(ev *event.Event) ([]bus.Change, bool) {
	offerID, _ := ev.TagValue("e")
	offer, ok := i.offers[offerID]
	if !ok {
		i.logger.Warn("cancel references unknown offer",
			"cancel_id", ev.ID,
			"offer_id", offerID,
		)
		return nil, false
	}

	offer.Status = OfferCancelled
	i.offers[offerID] = offer
	return []bus.Change{{Topic: bus.TopicOffers, Action: "cancelled", Key: offerID, Record: offer}}, true
}

func (i *Indexer) applyUserCollection(ev *event.Event) ([]bus.Change, bool) {
	disc, ok := cutDTag(ev, "collection:")
	if !ok {
		i.logger.Warn("collection with unparseable d tag", "id", ev.ID, "pubkey", ev.PubKey)
		return nil, false
	}

	coll := Collection{
		PubKey:        ev.PubKey,
		Discriminator: disc,
		Provenance:    provenance(ev),
	}
	if ev.Content != "" {
		if err := json.Unmarshal([]byte(ev.Content), &coll.Cards); err != nil {
			i.logger.Debug("collection content is not a card map", "id", ev.ID, "error", err)
		}
	}

	// Last write wins per pubkey, not per discriminator.
	i.collections[ev.PubKey] = coll
	return []bus.Change{{Topic: bus.TopicCollections, Action: "updated", Key: ev.PubKey, Record: coll}}, true
}

func (i *Indexer) applyPortfolioSnapshot(ev *event.Event) ([]bus.Change, bool) {
	disc, ok := cutDTag(ev, "portfolio:")
	if !ok {
		i.logger.Warn("portfolio with unparseable d tag", "id", ev.ID, "pubkey", ev.PubKey)
		return nil, false
	}

	pf := Portfolio{
		PubKey:        ev.PubKey,
		Discriminator: disc,
		Provenance:    provenance(ev),
	}
	if ev.Content != "" {
		if err := json.Unmarshal([]byte(ev.Content), &pf.Snapshot); err != nil {
			i.logger.Debug("portfolio content is not JSON", "id", ev.ID, "error", err)
		}
	}

	i.portfolios[ev.PubKey] = pf
	return []bus.Change{{Topic: bus.TopicPortfolios, Action: "updated", Key: ev.PubKey, Record: pf}}, true
}

func provenance(ev *event.Event) Provenance {
	return Provenance{
		EventID:   ev.ID,
		Author:    ev.PubKey,
		CreatedAt: ev.CreatedAt,
	}
}

func cutDTag(ev *event.Event, prefix string) (string, bool) {
	d, ok := ev.TagValue("d")
	if !ok {
		return "", false
	}
	rest, ok := strings.CutPrefix(d, prefix)
	if !ok || rest == "" {
		return "", false
	}
	return rest, true
}

func tagInt64(ev *event.Event, name string) int64 {
	s, ok := ev.TagValue(name)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
