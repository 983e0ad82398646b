// Package config loads relay daemon configuration from YAML with
// environment variable expansion, defaulting and validation.
package config

import "time"

// RelayConfig is the root configuration for a relayd instance.
type RelayConfig struct {
	Server  ServerConfig  `yaml:"server"`
	Limits  LimitsConfig  `yaml:"limits"`
	Storage StorageConfig `yaml:"storage"`
	Indexer IndexerConfig `yaml:"indexer"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds the HTTP/WebSocket listener settings.
type ServerConfig struct {
	ListenAddr         string        `yaml:"listen_addr"`
	WSPath             string        `yaml:"ws_path"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	OutboundBufferSize int           `yaml:"outbound_buffer_size"`
}

// LimitsConfig holds admission control settings.
type LimitsConfig struct {
	RateWindow      time.Duration `yaml:"rate_window"`
	RateCap         int           `yaml:"rate_cap"`
	MaxMessageBytes int64         `yaml:"max_message_bytes"`
	MinKind         int           `yaml:"min_kind"`
	MaxKind         int           `yaml:"max_kind"`
}

// StorageConfig selects and configures the event log backend.
type StorageConfig struct {
	Backend  string   `yaml:"backend"` // "memory" or "postgres"
	Postgres DBConfig `yaml:"postgres"`
}

// DBConfig holds a Postgres connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// IndexerConfig holds indexer settings.
type IndexerConfig struct {
	QueueSize int `yaml:"queue_size"`
}

// MetricsConfig holds Prometheus exposure settings.
type MetricsConfig struct {
	Path string `yaml:"path"`
}
