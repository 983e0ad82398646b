package event

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// CardDefinition is the typed input for a card definition event.
type CardDefinition struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Rarity string `json:"rarity"`
	Set    string `json:"set,omitempty"`
	Image  string `json:"image,omitempty"`
	Slug   string `json:"slug,omitempty"`
}

// NewCardDefinition builds an unsigned card definition event
// (d=card:<id>, name, rarity, optional set/image/slug).
func NewCardDefinition(pubkey string, card CardDefinition) (*Event, error) {
	content, err := json.Marshal(card)
	if err != nil {
		return nil, fmt.Errorf("encode card definition: %w", err)
	}
	tags := [][]string{
		{"d", "card:" + card.ID},
		{"name", card.Name},
		{"rarity", card.Rarity},
	}
	if card.Set != "" {
		tags = append(tags, []string{"set", card.Set})
	}
	if card.Image != "" {
		tags = append(tags, []string{"image", card.Image})
	}
	if card.Slug != "" {
		tags = append(tags, []string{"slug", card.Slug})
	}
	return New(pubkey, KindCardDefinition, string(content), tags), nil
}

// NewUserCollection builds an unsigned collection snapshot event
// (d=collection:<discriminator>, content is the card->quantity map).
// The discriminator defaults to the first 8 hex chars of the pubkey.
func NewUserCollection(pubkey, discriminator string, cards map[string]int) (*Event, error) {
	if discriminator == "" {
		discriminator = defaultDiscriminator(pubkey)
	}
	content, err := json.Marshal(cards)
	if err != nil {
		return nil, fmt.Errorf("encode collection: %w", err)
	}
	tags := [][]string{{"d", "collection:" + discriminator}}
	return New(pubkey, KindUserCollection, string(content), tags), nil
}

// Offer types.
const (
	OfferTypeBuy      = "buy"
	OfferTypeSell     = "sell"
	OfferTypeExchange = "exchange"
)

// TradeOffer is the typed input for a trade offer event.
type TradeOffer struct {
	Card         string `json:"card"`
	Type         string `json:"type"` // buy, sell, exchange
	Price        int64  `json:"price,omitempty"`
	Quantity     int    `json:"quantity"`
	ExpiresAt    int64  `json:"expires_at,omitempty"`
	ExchangeCard string `json:"exchange_card,omitempty"`
}

// NewTradeOffer builds an unsigned trade offer event.
func NewTradeOffer(pubkey string, offer TradeOffer) (*Event, error) {
	content, err := json.Marshal(offer)
	if err != nil {
		return nil, fmt.Errorf("encode trade offer: %w", err)
	}
	tags := [][]string{
		{"card", offer.Card},
		{"type", offer.Type},
	}
	if offer.Price > 0 {
		tags = append(tags, []string{"price", strconv.FormatInt(offer.Price, 10)})
	}
	tags = append(tags, []string{"quantity", strconv.Itoa(offer.Quantity)})
	if offer.ExpiresAt > 0 {
		tags = append(tags, []string{"expires_at", strconv.FormatInt(offer.ExpiresAt, 10)})
	}
	if offer.ExchangeCard != "" {
		tags = append(tags, []string{"exchange_card", offer.ExchangeCard})
	}
	return New(pubkey, KindTradeOffer, string(content), tags), nil
}

// TradeExecution is the typed input for a trade execution event.
type TradeExecution struct {
	OfferID  string `json:"offer_id"`
	Buyer    string `json:"buyer"`
	Seller   string `json:"seller"`
	Card     string `json:"card"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

// NewTradeExecution builds an unsigned trade execution event.
func NewTradeExecution(pubkey string, exec TradeExecution) (*Event, error) {
	content, err := json.Marshal(exec)
	if err != nil {
		return nil, fmt.Errorf("encode trade execution: %w", err)
	}
	tags := [][]string{
		{"offer_id", exec.OfferID},
		{"buyer", exec.Buyer},
		{"seller", exec.Seller},
		{"card", exec.Card},
		{"quantity", strconv.Itoa(exec.Quantity)},
		{"price", strconv.FormatInt(exec.Price, 10)},
	}
	return New(pubkey, KindTradeExecution, string(content), tags), nil
}

// NewTradeCancel builds an unsigned cancel event referencing an offer by
// its event id: a single ["e", <offer_event_id>, "cancel"] tag.
func NewTradeCancel(pubkey, offerEventID string) *Event {
	tags := [][]string{{"e", offerEventID, "cancel"}}
	return New(pubkey, KindTradeCancel, "", tags)
}

// Alert directions.
const (
	AlertAbove = "above"
	AlertBelow = "below"
)

// PriceAlert is the typed input for a price alert event.
type PriceAlert struct {
	Card      string `json:"card"`
	Direction string `json:"direction"` // above, below
	Threshold int64  `json:"threshold"`
}

// NewPriceAlert builds an unsigned price alert event
// (d=alert:<card>:<direction>).
func NewPriceAlert(pubkey string, alert PriceAlert) (*Event, error) {
	content, err := json.Marshal(alert)
	if err != nil {
		return nil, fmt.Errorf("encode price alert: %w", err)
	}
	tags := [][]string{
		{"d", "alert:" + alert.Card + ":" + alert.Direction},
		{"card", alert.Card},
		{"direction", alert.Direction},
		{"threshold", strconv.FormatInt(alert.Threshold, 10)},
	}
	return New(pubkey, KindPriceAlert, string(content), tags), nil
}

// PortfolioSnapshot is the typed input for a portfolio snapshot event.
type PortfolioSnapshot struct {
	TotalValue  int64 `json:"total_value"`
	CardCount   int   `json:"card_count"`
	UniqueCards int   `json:"unique_cards,omitempty"`
}

// NewPortfolioSnapshot builds an unsigned portfolio snapshot event
// (d=portfolio:<discriminator>). The discriminator defaults to the first
// 8 hex chars of the pubkey.
func NewPortfolioSnapshot(pubkey, discriminator string, snap PortfolioSnapshot) (*Event, error) {
	if discriminator == "" {
		discriminator = defaultDiscriminator(pubkey)
	}
	content, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("encode portfolio snapshot: %w", err)
	}
	tags := [][]string{
		{"d", "portfolio:" + discriminator},
		{"total_value", strconv.FormatInt(snap.TotalValue, 10)},
		{"card_count", strconv.Itoa(snap.CardCount)},
	}
	if snap.UniqueCards > 0 {
		tags = append(tags, []string{"unique_cards", strconv.Itoa(snap.UniqueCards)})
	}
	return New(pubkey, KindPortfolioSnapshot, string(content), tags), nil
}

func defaultDiscriminator(pubkey string) string {
	if len(pubkey) < 8 {
		return pubkey
	}
	return pubkey[:8]
}
