package indexer

// Read APIs. All are safe for concurrent use with the fold loop.

// Card returns the catalog entry for a card id.
func (i *Indexer) Card(cardID string) (Card, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	c, ok := i.cards[cardID]
	return c, ok
}

// Cards returns every catalog entry.
func (i *Indexer) Cards() []Card {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]Card, 0, len(i.cards))
	for _, c := range i.cards {
		out = append(out, c)
	}
	return out
}

// Offer returns an offer by its originating event id.
func (i *Indexer) Offer(offerID string) (Offer, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	o, ok := i.offers[offerID]
	return o, ok
}

// OpenOffers returns every offer still in the open state.
func (i *Indexer) OpenOffers() []Offer {
	i.mu.RLock()
	defer i.mu.RUnlock()
	var out []Offer
	for _, o := range i.offers {
		if o.Status == OfferOpen {
			out = append(out, o)
		}
	}
	return out
}

// Offers returns every offer regardless of status.
func (i *Indexer) Offers() []Offer {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]Offer, 0, len(i.offers))
	for _, o := range i.offers {
		out = append(out, o)
	}
	return out
}

// Execution returns an execution by its originating event id.
func (i *Indexer) Execution(executionID string) (Execution, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	e, ok := i.executions[executionID]
	return e, ok
}

// Executions returns every execution record.
func (i *Indexer) Executions() []Execution {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]Execution, 0, len(i.executions))
	for _, e := range i.executions {
		out = append(out, e)
	}
	return out
}

// Collection returns a signer's latest collection snapshot.
func (i *Indexer) Collection(pubkey string) (Collection, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	c, ok := i.collections[pubkey]
	return c, ok
}

// Portfolio returns a signer's latest portfolio snapshot.
func (i *Indexer) Portfolio(pubkey string) (Portfolio, bool) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	p, ok := i.portfolios[pubkey]
	return p, ok
}

// Watermark returns the highest created_at folded so far.
func (i *Indexer) Watermark() int64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.watermark
}
