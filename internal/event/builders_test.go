package event

import (
	"encoding/json"
	"testing"
)

func TestNewCardDefinition(t *testing.T) {
	ev, err := NewCardDefinition("pk", CardDefinition{
		ID:     "BTC001",
		Name:   "Satoshi",
		Rarity: "legendary",
		Set:    "genesis",
	})
	if err != nil {
		t.Fatalf("NewCardDefinition failed: %v", err)
	}

	if ev.Kind != KindCardDefinition {
		t.Errorf("Kind = %d, want %d", ev.Kind, KindCardDefinition)
	}
	if d, _ := ev.TagValue("d"); d != "card:BTC001" {
		t.Errorf("d tag = %q, want card:BTC001", d)
	}
	if name, _ := ev.TagValue("name"); name != "Satoshi" {
		t.Errorf("name tag = %q, want Satoshi", name)
	}
	if rarity, _ := ev.TagValue("rarity"); rarity != "legendary" {
		t.Errorf("rarity tag = %q, want legendary", rarity)
	}
	if set, _ := ev.TagValue("set"); set != "genesis" {
		t.Errorf("set tag = %q, want genesis", set)
	}
	if _, ok := ev.TagValue("image"); ok {
		t.Error("image tag present for card without image")
	}

	var decoded CardDefinition
	if err := json.Unmarshal([]byte(ev.Content), &decoded); err != nil {
		t.Fatalf("content is not valid JSON: %v", err)
	}
	if decoded != (CardDefinition{ID: "BTC001", Name: "Satoshi", Rarity: "legendary", Set: "genesis"}) {
		t.Errorf("decoded content = %+v", decoded)
	}
}

func TestNewUserCollection_DefaultDiscriminator(t *testing.T) {
	pubkey := "aabbccdd11223344"
	ev, err := NewUserCollection(pubkey, "", map[string]int{"BTC001": 2})
	if err != nil {
		t.Fatalf("NewUserCollection failed: %v", err)
	}

	if d, _ := ev.TagValue("d"); d != "collection:aabbccdd" {
		t.Errorf("d tag = %q, want collection:aabbccdd", d)
	}

	var cards map[string]int
	if err := json.Unmarshal([]byte(ev.Content), &cards); err != nil {
		t.Fatalf("content is not a card map: %v", err)
	}
	if cards["BTC001"] != 2 {
		t.Errorf("cards[BTC001] = %d, want 2", cards["BTC001"])
	}
}

func TestNewTradeOffer(t *testing.T) {
	ev, err := NewTradeOffer("pk", TradeOffer{
		Card:      "BTC001",
		Type:      OfferTypeSell,
		Price:     1000,
		Quantity:  3,
		ExpiresAt: 2000000000,
	})
	if err != nil {
		t.Fatalf("NewTradeOffer failed: %v", err)
	}

	want := map[string]string{
		"card":       "BTC001",
		"type":       "sell",
		"price":      "1000",
		"quantity":   "3",
		"expires_at": "2000000000",
	}
	for name, value := range want {
		if got, _ := ev.TagValue(name); got != value {
			t.Errorf("%s tag = %q, want %q", name, got, value)
		}
	}
	if _, ok := ev.TagValue("exchange_card"); ok {
		t.Error("exchange_card tag present for priced offer")
	}
}

func TestNewTradeOffer_Exchange(t *testing.T) {
	ev, err := NewTradeOffer("pk", TradeOffer{
		Card:         "BTC001",
		Type:         OfferTypeExchange,
		Quantity:     1,
		ExchangeCard: "ETH002",
	})
	if err != nil {
		t.Fatalf("NewTradeOffer failed: %v", err)
	}
	if _, ok := ev.TagValue("price"); ok {
		t.Error("price tag present for exchange offer without price")
	}
	if xc, _ := ev.TagValue("exchange_card"); xc != "ETH002" {
		t.Errorf("exchange_card tag = %q, want ETH002", xc)
	}
}

func TestNewTradeCancel(t *testing.T) {
	ev := NewTradeCancel("pk", "offer-event-id")

	if ev.Kind != KindTradeCancel {
		t.Errorf("Kind = %d, want %d", ev.Kind, KindTradeCancel)
	}
	tag := ev.Tag("e")
	if len(tag) != 3 || tag[1] != "offer-event-id" || tag[2] != "cancel" {
		t.Errorf("e tag = %v, want [e offer-event-id cancel]", tag)
	}
}

func TestNewPriceAlert(t *testing.T) {
	ev, err := NewPriceAlert("pk", PriceAlert{Card: "BTC001", Direction: AlertAbove, Threshold: 5000})
	if err != nil {
		t.Fatalf("NewPriceAlert failed: %v", err)
	}
	if d, _ := ev.TagValue("d"); d != "alert:BTC001:above" {
		t.Errorf("d tag = %q, want alert:BTC001:above", d)
	}
	if th, _ := ev.TagValue("threshold"); th != "5000" {
		t.Errorf("threshold tag = %q, want 5000", th)
	}
}

func TestNewPortfolioSnapshot(t *testing.T) {
	ev, err := NewPortfolioSnapshot("aabbccdd99", "main", PortfolioSnapshot{
		TotalValue:  120000,
		CardCount:   42,
		UniqueCards: 17,
	})
	if err != nil {
		t.Fatalf("NewPortfolioSnapshot failed: %v", err)
	}
	if d, _ := ev.TagValue("d"); d != "portfolio:main" {
		t.Errorf("d tag = %q, want portfolio:main", d)
	}
	if tv, _ := ev.TagValue("total_value"); tv != "120000" {
		t.Errorf("total_value tag = %q, want 120000", tv)
	}
	if uc, _ := ev.TagValue("unique_cards"); uc != "17" {
		t.Errorf("unique_cards tag = %q, want 17", uc)
	}
}
