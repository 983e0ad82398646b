package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardbazaar/ledger/internal/event"
)

// Events table. seq preserves acceptance order for replay; the id
// uniqueness constraint gives idempotent saves.
const eventsDDL = `
CREATE TABLE IF NOT EXISTS events (
	seq        BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	pubkey     TEXT NOT NULL,
	created_at BIGINT NOT NULL,
	kind       INT NOT NULL,
	tags       JSONB NOT NULL,
	content    TEXT NOT NULL,
	sig        TEXT NOT NULL
)`

// Postgres is the durable event log.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// PostgresConfig holds pool sizing for the event log.
type PostgresConfig struct {
	ConnString string
	MinConns   int
	MaxConns   int
}

// NewPostgres connects to the database, verifies the connection and
// ensures the events table exists.
func NewPostgres(ctx context.Context, cfg PostgresConfig, logger *slog.Logger) (*Postgres, error) {
	if logger == nil {
		logger = slog.Default()
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.ConnString)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, eventsDDL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure events table: %w", err)
	}

	return &Postgres{pool: pool, logger: logger}, nil
}

// Save appends the event with ON CONFLICT DO NOTHING on the id.
func (p *Postgres) Save(ctx context.Context, ev *event.Event) error {
	tags, err := json.Marshal(ev.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}

	ct, err := p.pool.Exec(ctx, `
		INSERT INTO events (id, pubkey, created_at, kind, tags, content, sig)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`, ev.ID, ev.PubKey, ev.CreatedAt, ev.Kind, tags, ev.Content, ev.Sig)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	if ct.RowsAffected() == 0 {
		p.logger.Debug("duplicate event ignored", "id", ev.ID)
	}
	return nil
}

// Query returns stored events matching any filter, in insertion order.
// Filter matching happens in process so semantics are identical to the
// memory backend.
func (p *Postgres) Query(ctx context.Context, filters []event.Filter) ([]*event.Event, error) {
	var out []*event.Event
	err := p.Replay(ctx, func(ev *event.Event) error {
		if event.MatchesAny(filters, ev) {
			out = append(out, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of stored events matching any filter.
func (p *Postgres) Count(ctx context.Context, filters []event.Filter) (int, error) {
	n := 0
	err := p.Replay(ctx, func(ev *event.Event) error {
		if event.MatchesAny(filters, ev) {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Replay invokes fn for every stored event in seq order.
func (p *Postgres) Replay(ctx context.Context, fn func(*event.Event) error) error {
	rows, err := p.pool.Query(ctx, `
		SELECT id, pubkey, created_at, kind, tags, content, sig
		FROM events
		ORDER BY seq
	`)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ev event.Event
		var tags []byte
		if err := rows.Scan(&ev.ID, &ev.PubKey, &ev.CreatedAt, &ev.Kind, &tags, &ev.Content, &ev.Sig); err != nil {
			return fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal(tags, &ev.Tags); err != nil {
			return fmt.Errorf("decode tags for %s: %w", ev.ID, err)
		}
		if err := fn(&ev); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	if p.pool != nil {
		p.pool.Close()
	}
}
