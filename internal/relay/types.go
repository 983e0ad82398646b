package relay

import (
	"time"

	"github.com/cardbazaar/ledger/internal/event"
)

// Wire verbs (first element of every protocol frame).
const (
	VerbEvent  = "EVENT"
	VerbReq    = "REQ"
	VerbClose  = "CLOSE"
	VerbCount  = "COUNT"
	VerbOK     = "OK"
	VerbEOSE   = "EOSE"
	VerbClosed = "CLOSED"
	VerbNotice = "NOTICE"
)

// Config holds relay settings.
type Config struct {
	PingInterval       time.Duration // interval between keepalive pings
	WriteTimeout       time.Duration // write deadline per outbound frame
	OutboundBufferSize int           // per-session outbound frame buffer
	MaxMessageBytes    int64         // inbound frame size limit
	MinKind            int           // lowest accepted event kind
	MaxKind            int           // highest accepted event kind
	RateWindow         time.Duration // rate limit window per signer
	RateCap            int           // accepted events per signer per window
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		PingInterval:       30 * time.Second,
		WriteTimeout:       5 * time.Second,
		OutboundBufferSize: 256,
		MaxMessageBytes:    512 * 1024,
		MinKind:            event.MinAcceptedKind,
		MaxKind:            event.MaxAcceptedKind,
		RateWindow:         60 * time.Second,
		RateCap:            100,
	}
}

// EventSink receives accepted events for folding. Submit must not block;
// it returns false when the sink has shut down.
type EventSink interface {
	Submit(ev *event.Event) bool
}
