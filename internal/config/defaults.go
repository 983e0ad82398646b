package config

import (
	"time"

	"github.com/cardbazaar/ledger/internal/event"
)

// Default values for optional configuration fields.
const (
	DefaultListenAddr         = ":7447"
	DefaultWSPath             = "/ws"
	DefaultPingInterval       = 30 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultOutboundBufferSize = 256
	DefaultRateWindow         = 60 * time.Second
	DefaultRateCap            = 100
	DefaultMaxMessageBytes    = 512 * 1024
	DefaultBackend            = "memory"
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 10
	DefaultMinConns           = 2
	DefaultQueueSize          = 1024
	DefaultMetricsPath        = "/metrics"
)

func (c *RelayConfig) applyDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = DefaultListenAddr
	}
	if c.Server.WSPath == "" {
		c.Server.WSPath = DefaultWSPath
	}
	if c.Server.PingInterval == 0 {
		c.Server.PingInterval = DefaultPingInterval
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = DefaultWriteTimeout
	}
	if c.Server.OutboundBufferSize == 0 {
		c.Server.OutboundBufferSize = DefaultOutboundBufferSize
	}

	if c.Limits.RateWindow == 0 {
		c.Limits.RateWindow = DefaultRateWindow
	}
	if c.Limits.RateCap == 0 {
		c.Limits.RateCap = DefaultRateCap
	}
	if c.Limits.MaxMessageBytes == 0 {
		c.Limits.MaxMessageBytes = DefaultMaxMessageBytes
	}
	if c.Limits.MinKind == 0 {
		c.Limits.MinKind = event.MinAcceptedKind
	}
	if c.Limits.MaxKind == 0 {
		c.Limits.MaxKind = event.MaxAcceptedKind
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = DefaultBackend
	}
	applyDBDefaults(&c.Storage.Postgres)

	if c.Indexer.QueueSize == 0 {
		c.Indexer.QueueSize = DefaultQueueSize
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
