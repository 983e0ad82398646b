package event

// Card-market event kinds. The range is parameterized-replaceable
// (30000-39999) so relays that understand NIP-01 addressing treat the
// "d" tag as the replacement discriminator.
const (
	KindCardDefinition    = 32121
	KindUserCollection    = 32122
	KindTradeOffer        = 32123
	KindTradeExecution    = 32124
	KindPriceAlert        = 32125
	KindPortfolioSnapshot = 32126
	KindTradeCancel       = 32127
)

// Relay admission range. Wider than the defined kinds so new card-market
// kinds can be introduced without a relay upgrade.
const (
	MinAcceptedKind = 32121
	MaxAcceptedKind = 32130
)

// KindName returns a human-readable name for logging.
func KindName(kind int) string {
	switch kind {
	case KindCardDefinition:
		return "card_definition"
	case KindUserCollection:
		return "user_collection"
	case KindTradeOffer:
		return "trade_offer"
	case KindTradeExecution:
		return "trade_execution"
	case KindPriceAlert:
		return "price_alert"
	case KindPortfolioSnapshot:
		return "portfolio_snapshot"
	case KindTradeCancel:
		return "trade_cancel"
	default:
		return "unknown"
	}
}
