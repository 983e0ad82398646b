package indexer

// OfferStatus is the lifecycle state of a trade offer.
type OfferStatus string

const (
	OfferOpen      OfferStatus = "open"
	OfferExecuted  OfferStatus = "executed"
	OfferCancelled OfferStatus = "cancelled"
)

// Provenance records where a materialized record came from.
type Provenance struct {
	EventID   string // originating event id
	Author    string // signer pubkey
	CreatedAt int64  // signer-supplied timestamp (seconds since epoch)
}

// Card is a catalog entry, keyed by the card id from its d tag.
type Card struct {
	CardID  string
	Name    string
	Rarity  string
	Set     string
	Slug    string
	Image   string
	Content map[string]any // decoded event content
	Provenance
}

// Offer is an open, executed or cancelled trade offer, keyed by the
// originating event id.
type Offer struct {
	OfferID      string // originating event id
	CardID       string
	Type         string // buy, sell, exchange
	Price        int64
	Quantity     int
	ExpiresAt    int64
	ExchangeCard string
	Content      string // raw event content
	Status       OfferStatus
	Provenance
}

// Execution records a trade execution, keyed by the originating event id.
type Execution struct {
	ExecutionID string // originating event id
	OfferID     string // referenced offer event id
	CardID      string
	Quantity    int
	Price       int64
	Content     string // raw event content
	Provenance
}

// Collection is a signer's latest collection snapshot, keyed by pubkey.
type Collection struct {
	PubKey        string
	Discriminator string
	Cards         map[string]int // card id -> quantity
	Provenance
}

// Portfolio is a signer's latest portfolio snapshot, keyed by pubkey.
type Portfolio struct {
	PubKey        string
	Discriminator string
	Snapshot      map[string]any // decoded event content
	Provenance
}
