package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmehra/relaybox/store"
)

func (s *Store) GetThread(ctx context.Context, id string) (*store.Thread, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var t store.Thread
	err := s.db.QueryRowContext(ctx, `
		SELECT id, subject, message_count, last_message_at, created_at
		FROM threads WHERE id = $1
	`, id).Scan(&t.ID, &t.Subject, &t.MessageCount, &t.LastMessageAt, &t.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get thread: %w", err)
	}

	return &t, nil
}

func (s *Store) ListThreads(ctx context.Context, opts store.ListOptions) (*store.ThreadList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM threads`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count threads: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject, message_count, last_message_at, created_at
		FROM threads
		ORDER BY last_message_at DESC
		LIMIT $1 OFFSET $2
	`, opts.Limit+1, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("query threads: %w", err)
	}
	defer rows.Close()

	var threads []*store.Thread
	for rows.Next() {
		var t store.Thread
		if err := rows.Scan(&t.ID, &t.Subject, &t.MessageCount, &t.LastMessageAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}

	hasMore := len(threads) > opts.Limit
	if hasMore {
		threads = threads[:opts.Limit]
	}

	return &store.ThreadList{
		Threads: threads,
		Total:   total,
		HasMore: hasMore,
	}, nil
}

func (s *Store) ThreadMessages(ctx context.Context, threadID string, opts store.ListOptions) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(threadID); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if opts.Limit <= 0 {
		opts.Limit = 100
	}

	var total int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE thread_id = $1 AND approved = TRUE`,
		threadID).Scan(&total); err != nil {
		return nil, fmt.Errorf("count thread messages: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM messages
		WHERE thread_id = $1 AND approved = TRUE
		ORDER BY created_at ASC
		LIMIT $2 OFFSET $3
	`, messageColumns)

	rows, err := s.db.QueryContext(ctx, query, threadID, opts.Limit+1, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("query thread messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan thread message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate thread messages: %w", err)
	}

	hasMore := len(messages) > opts.Limit
	if hasMore {
		messages = messages[:opts.Limit]
	}

	if err := s.loadDetails(ctx, messages); err != nil {
		return nil, err
	}

	return &store.MessageList{
		Messages: messages,
		Total:    total,
		HasMore:  hasMore,
	}, nil
}

// LastThreadMessage ignores the approval gate: reply headers must chain off
// the actual newest message, visible or not.
func (s *Store) LastThreadMessage(ctx context.Context, threadID string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(threadID); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`
		SELECT %s
		FROM messages
		WHERE thread_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, messageColumns)

	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, threadID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("last thread message: %w", err)
	}

	return msg, nil
}
