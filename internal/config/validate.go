package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks that all required fields are set and values are valid.
func (c *RelayConfig) Validate() error {
	if c.Server.ListenAddr == "" {
		return errors.New("server.listen_addr is required")
	}
	if c.Server.WSPath == "" || c.Server.WSPath[0] != '/' {
		return errors.New("server.ws_path must start with /")
	}

	if c.Limits.RateCap < 1 {
		return errors.New("limits.rate_cap must be >= 1")
	}
	if c.Limits.RateWindow <= 0 {
		return errors.New("limits.rate_window must be positive")
	}
	if c.Limits.MaxMessageBytes < 1 {
		return errors.New("limits.max_message_bytes must be >= 1")
	}
	if c.Limits.MinKind > c.Limits.MaxKind {
		return fmt.Errorf("limits.min_kind (%d) cannot exceed max_kind (%d)", c.Limits.MinKind, c.Limits.MaxKind)
	}

	switch c.Storage.Backend {
	case "memory":
	case "postgres":
		if err := c.Storage.Postgres.validate("storage.postgres"); err != nil {
			return err
		}
	default:
		return fmt.Errorf("storage.backend must be memory or postgres, got %q", c.Storage.Backend)
	}

	if c.Indexer.QueueSize < 1 {
		return errors.New("indexer.queue_size must be >= 1")
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}

// ConnString builds a Postgres connection string from the DB config.
func (db DBConfig) ConnString() string {
	// URL-encode password to handle special characters
	escapedPassword := url.QueryEscape(db.Password)

	sslMode := db.SSLMode
	if sslMode == "" {
		sslMode = "prefer"
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		db.User,
		escapedPassword,
		db.Host,
		db.Port,
		db.Name,
		sslMode,
	)
}
