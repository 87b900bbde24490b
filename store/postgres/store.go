// Package postgres provides a PostgreSQL implementation of store.Store.
//
// Full-text search is backed by a generated tsvector column with a GIN
// index. Because the column is generated, the index is updated in the same
// transaction as every message write; it can never lag behind the data.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/jmoiron/sqlx"

	"github.com/dmehra/relaybox/store"
)

// Compile-time check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using PostgreSQL.
type Store struct {
	db        *sqlx.DB
	opts      *options
	connected int32
	logger    *slog.Logger
}

// New creates a new PostgreSQL store with the provided database connection.
// Call Connect() to initialize the schema and indexes.
func New(db *sqlx.DB, opts ...Option) *Store {
	o := newOptions(opts...)
	return &Store{
		db:     db,
		opts:   o,
		logger: o.logger,
	}
}

// NewFromDB creates a new PostgreSQL store from a standard sql.DB connection.
// This wraps the sql.DB with sqlx for enhanced functionality.
func NewFromDB(db *sql.DB, opts ...Option) *Store {
	return New(sqlx.NewDb(db, "postgres"), opts...)
}

// Connect initializes the schema and indexes.
func (s *Store) Connect(ctx context.Context) error {
	if !atomic.CompareAndSwapInt32(&s.connected, 0, 1) {
		return store.ErrAlreadyConnected
	}

	if s.db == nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres: db is required")
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("postgres ping: %w", err)
	}

	if err := s.ensureSchema(ctx); err != nil {
		atomic.StoreInt32(&s.connected, 0)
		return fmt.Errorf("ensure schema: %w", err)
	}

	s.logger.Info("connected to PostgreSQL", "search_config", s.opts.searchConfig)
	return nil
}

// Close marks the store as disconnected.
// The caller is responsible for closing the database connection.
func (s *Store) Close(ctx context.Context) error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return nil
	}
	atomic.StoreInt32(&s.connected, 0)
	return nil
}

// ensureSchema creates the required tables and indexes.
func (s *Store) ensureSchema(ctx context.Context) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS threads (
			id UUID PRIMARY KEY,
			subject TEXT NOT NULL DEFAULT '',
			message_count BIGINT NOT NULL DEFAULT 0,
			last_message_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		// refs holds the References header; "references" is reserved in SQL.
		// The search column keeps the full-text index synchronized with the
		// row it indexes - no async reindex step exists.
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			thread_id UUID NOT NULL REFERENCES threads(id),
			message_id TEXT,
			in_reply_to TEXT,
			refs TEXT NOT NULL DEFAULT '',
			from_addr TEXT NOT NULL,
			to_addr TEXT NOT NULL DEFAULT '',
			cc_addr TEXT NOT NULL DEFAULT '',
			bcc_addr TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			body_text TEXT NOT NULL DEFAULT '',
			body_html TEXT NOT NULL DEFAULT '',
			headers TEXT NOT NULL DEFAULT '',
			direction VARCHAR(10) NOT NULL,
			approved BOOLEAN NOT NULL DEFAULT FALSE,
			archived BOOLEAN NOT NULL DEFAULT FALSE,
			status VARCHAR(20),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			search TSVECTOR GENERATED ALWAYS AS (
				to_tsvector('%s', coalesce(subject, '') || ' ' || coalesce(body_text, ''))
			) STORED
		)`, s.opts.searchConfig),
		`CREATE TABLE IF NOT EXISTS message_labels (
			message_id UUID NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			label VARCHAR(255) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (message_id, label)
		)`,
		`CREATE TABLE IF NOT EXISTS attachments (
			id UUID PRIMARY KEY,
			message_id UUID NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
			filename TEXT NOT NULL DEFAULT '',
			content_type VARCHAR(255) NOT NULL DEFAULT '',
			size BIGINT NOT NULL DEFAULT 0,
			blob_key TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS approved_senders (
			email TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS drafts (
			id UUID PRIMARY KEY,
			thread_id UUID,
			to_addr TEXT NOT NULL DEFAULT '',
			cc_addr TEXT NOT NULL DEFAULT '',
			bcc_addr TEXT NOT NULL DEFAULT '',
			subject TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, t := range tables {
		if _, err := s.db.ExecContext(ctx, t); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_messages_created ON messages(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_message_id ON messages(message_id) WHERE message_id IS NOT NULL`,
		// Drives the retroactive reveal in ApproveSender.
		`CREATE INDEX IF NOT EXISTS idx_messages_from_unapproved ON messages(lower(from_addr)) WHERE approved = FALSE`,
		`CREATE INDEX IF NOT EXISTS idx_messages_approved_created ON messages(approved, created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_search ON messages USING GIN(search)`,
		`CREATE INDEX IF NOT EXISTS idx_labels_label ON message_labels(label)`,
		`CREATE INDEX IF NOT EXISTS idx_attachments_message ON attachments(message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_threads_last_message ON threads(last_message_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_drafts_updated ON drafts(updated_at DESC)`,
	}

	for _, idx := range indexes {
		if _, err := s.db.ExecContext(ctx, idx); err != nil {
			s.logger.Warn("failed to create index", "error", err, "sql", idx)
		}
	}

	return nil
}

// checkConnected returns error if not connected.
func (s *Store) checkConnected() error {
	if atomic.LoadInt32(&s.connected) == 0 {
		return store.ErrNotConnected
	}
	return nil
}
