package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	nickname TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	avatar_url TEXT,
	balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0),
	frozen BIGINT NOT NULL DEFAULT 0 CHECK (frozen >= 0),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS games (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	banner_url TEXT
);

CREATE TABLE IF NOT EXISTS items (
	id BIGSERIAL PRIMARY KEY,
	game_id BIGINT NOT NULL REFERENCES games(id),
	seller_id BIGINT NOT NULL REFERENCES users(id),
	name TEXT NOT NULL,
	descr TEXT NOT NULL DEFAULT '',
	price BIGINT NOT NULL CHECK (price >= 0),
	photo_url TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT 'active',
	dedup_key TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS deals (
	id BIGSERIAL PRIMARY KEY,
	item_id BIGINT NOT NULL REFERENCES items(id),
	buyer_id BIGINT NOT NULL REFERENCES users(id),
	price BIGINT NOT NULL,
	status TEXT NOT NULL DEFAULT 'pending',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS operations (
	id BIGSERIAL PRIMARY KEY,
	user_id BIGINT NOT NULL REFERENCES users(id),
	type TEXT NOT NULL,
	amount BIGINT NOT NULL CHECK (amount > 0),
	status TEXT NOT NULL DEFAULT 'completed',
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chats (
	id BIGSERIAL PRIMARY KEY,
	deal_id BIGINT NOT NULL UNIQUE REFERENCES deals(id),
	buyer_id BIGINT NOT NULL REFERENCES users(id),
	seller_id BIGINT NOT NULL REFERENCES users(id),
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS chat_messages (
	id BIGSERIAL PRIMARY KEY,
	chat_id BIGINT NOT NULL REFERENCES chats(id),
	sender_id BIGINT REFERENCES users(id),
	type TEXT NOT NULL DEFAULT 'text',
	text TEXT,
	image_url TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS processed_events (
	event_id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages(chat_id, created_at);
CREATE INDEX IF NOT EXISTS idx_items_game_status ON items(game_id, status);
CREATE INDEX IF NOT EXISTS idx_deals_buyer ON deals(buyer_id);
`

// EnsureSchema bootstraps the tables on startup. Every statement is
// idempotent, so restarting against an existing database is safe.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
