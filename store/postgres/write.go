package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dmehra/relaybox/store"
)

// statusRankSQL maps a delivery status to its ordinal so transitions can be
// compared inside an UPDATE. Must stay in sync with store.StatusAdvances.
const statusRankSQL = `CASE %s
	WHEN 'sent' THEN 1
	WHEN 'delivered' THEN 2
	WHEN 'bounced' THEN 3
	WHEN 'complained' THEN 4
	ELSE 0
END`

func (s *Store) CreateInbound(ctx context.Context, data store.InboundData) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	from := strings.TrimSpace(data.From)
	if from == "" {
		return nil, fmt.Errorf("%w: empty from address", store.ErrInvalidEmail)
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	createdAt := data.ReceivedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Thread resolution: join the thread of the message named by
	// In-Reply-To, otherwise start a new one.
	var threadID string
	if data.InReplyTo != "" {
		err := tx.QueryRowContext(ctx,
			`SELECT thread_id FROM messages WHERE message_id = $1 LIMIT 1`,
			data.InReplyTo,
		).Scan(&threadID)
		if err != nil && err != sql.ErrNoRows {
			return nil, fmt.Errorf("resolve thread: %w", err)
		}
	}
	if threadID == "" {
		threadID = uuid.New().String()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO threads (id, subject, message_count, last_message_at, created_at)
			 VALUES ($1, $2, 0, $3, $3)`,
			threadID, data.Subject, createdAt)
		if err != nil {
			return nil, fmt.Errorf("create thread: %w", err)
		}
	}

	// The approval flag is computed by the database inside this transaction,
	// so an ApproveSender racing this insert cannot strand the message:
	// either its allow-list row is visible here, or its retroactive UPDATE
	// sees this row.
	id := uuid.New().String()
	var approved bool
	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (id, thread_id, message_id, in_reply_to, refs,
		                      from_addr, to_addr, cc_addr, bcc_addr, subject,
		                      body_text, body_html, headers, direction, approved, archived, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        EXISTS (SELECT 1 FROM approved_senders WHERE email = lower($6)),
		        FALSE, $15)
		RETURNING approved
	`,
		id, threadID, nullable(data.MessageID), nullable(data.InReplyTo), data.References,
		from, data.To, data.Cc, data.Bcc, data.Subject,
		data.BodyText, data.BodyHTML, data.Headers, store.DirectionInbound, createdAt,
	).Scan(&approved)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE threads
		SET message_count = message_count + 1,
		    last_message_at = GREATEST(last_message_at, $2)
		WHERE id = $1
	`, threadID, createdAt); err != nil {
		return nil, fmt.Errorf("update thread: %w", err)
	}

	msg := &store.Message{
		ID:         id,
		ThreadID:   threadID,
		MessageID:  data.MessageID,
		InReplyTo:  data.InReplyTo,
		References: data.References,
		From:       from,
		To:         data.To,
		Cc:         data.Cc,
		Bcc:        data.Bcc,
		Subject:    data.Subject,
		BodyText:   data.BodyText,
		BodyHTML:   data.BodyHTML,
		Headers:    data.Headers,
		Direction:  store.DirectionInbound,
		Approved:   approved,
		CreatedAt:  createdAt,
	}

	for _, ad := range data.Attachments {
		a := store.Attachment{
			ID:          uuid.New().String(),
			MessageID:   id,
			Filename:    ad.Filename,
			ContentType: ad.ContentType,
			Size:        ad.Size,
			BlobKey:     ad.BlobKey,
			CreatedAt:   createdAt,
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO attachments (id, message_id, filename, content_type, size, blob_key, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, a.ID, a.MessageID, a.Filename, a.ContentType, a.Size, a.BlobKey, a.CreatedAt); err != nil {
			return nil, fmt.Errorf("insert attachment: %w", err)
		}
		msg.Attachments = append(msg.Attachments, a)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrTransactionFailed, err)
	}

	return msg, nil
}

func (s *Store) CreateOutbound(ctx context.Context, data store.OutboundData) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	sentAt := data.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	threadID := data.ThreadID
	if threadID == "" {
		// A send without a thread starts a new conversation.
		threadID = uuid.New().String()
		_, err := tx.ExecContext(ctx,
			`INSERT INTO threads (id, subject, message_count, last_message_at, created_at)
			 VALUES ($1, $2, 0, $3, $3)`,
			threadID, data.Subject, sentAt)
		if err != nil {
			return nil, fmt.Errorf("create thread: %w", err)
		}
	} else if _, err := uuid.Parse(threadID); err != nil {
		return nil, store.ErrInvalidID
	}

	id := uuid.New().String()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, message_id, in_reply_to, refs,
		                      from_addr, to_addr, cc_addr, bcc_addr, subject,
		                      body_text, body_html, headers, direction, approved, archived, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, TRUE, FALSE, $15, $16)
	`,
		id, threadID, nullable(data.MessageID), nullable(data.InReplyTo), data.References,
		strings.TrimSpace(data.From), data.To, data.Cc, data.Bcc, data.Subject,
		data.BodyText, data.BodyHTML, data.Headers, store.DirectionOutbound,
		store.StatusSent, sentAt)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE threads
		SET message_count = message_count + 1,
		    last_message_at = GREATEST(last_message_at, $2)
		WHERE id = $1
	`, threadID, sentAt)
	if err != nil {
		return nil, fmt.Errorf("update thread: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return nil, store.ErrNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrTransactionFailed, err)
	}

	return &store.Message{
		ID:         id,
		ThreadID:   threadID,
		MessageID:  data.MessageID,
		InReplyTo:  data.InReplyTo,
		References: data.References,
		From:       strings.TrimSpace(data.From),
		To:         data.To,
		Cc:         data.Cc,
		Bcc:        data.Bcc,
		Subject:    data.Subject,
		BodyText:   data.BodyText,
		BodyHTML:   data.BodyHTML,
		Headers:    data.Headers,
		Direction:  store.DirectionOutbound,
		Approved:   true,
		Status:     store.StatusSent,
		CreatedAt:  sentAt,
	}, nil
}

func (s *Store) SetArchived(ctx context.Context, id string, archived bool) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx,
		`UPDATE messages SET archived = $1 WHERE id = $2 AND approved = TRUE`,
		archived, id)
	if err != nil {
		return fmt.Errorf("set archived: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Store) SetApproved(ctx context.Context, id string, approved bool) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// No approval gate in the WHERE clause: this is the operation that
	// flips it, so it must reach hidden rows.
	result, err := s.db.ExecContext(ctx,
		`UPDATE messages SET approved = $1 WHERE id = $2`,
		approved, id)
	if err != nil {
		return fmt.Errorf("set approved: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotFound
	}

	return nil
}

func (s *Store) AddLabels(ctx context.Context, id string, labels ...string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}
	if len(labels) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// The INSERT ... SELECT only matches approved messages, so labeling a
	// hidden or missing message reports ErrNotFound without a prior read.
	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO message_labels (message_id, label, created_at)
		SELECT m.id, l.label, $3
		FROM messages m, unnest($2::text[]) AS l(label)
		WHERE m.id = $1 AND m.approved = TRUE
		ON CONFLICT (message_id, label) DO NOTHING
	`, id, pq.Array(labels), now)
	if err != nil {
		return fmt.Errorf("add labels: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		// Either the message is invisible or every label already existed.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1 AND approved = TRUE)`,
			id).Scan(&exists); err != nil {
			return fmt.Errorf("check message: %w", err)
		}
		if !exists {
			return store.ErrNotFound
		}
	}

	return nil
}

func (s *Store) RemoveLabel(ctx context.Context, id string, label string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM messages WHERE id = $1 AND approved = TRUE)`,
		id).Scan(&exists); err != nil {
		return fmt.Errorf("check message: %w", err)
	}
	if !exists {
		return store.ErrNotFound
	}

	// Removing an absent label is a no-op, not an error.
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM message_labels WHERE message_id = $1 AND label = $2`,
		id, label); err != nil {
		return fmt.Errorf("remove label: %w", err)
	}

	return nil
}

func (s *Store) SetDeliveryStatus(ctx context.Context, providerMessageID string, status store.DeliveryStatus) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	if !store.IsValidStatus(status) {
		return 0, fmt.Errorf("%w: %q", store.ErrInvalidStatus, status)
	}
	if providerMessageID == "" {
		return 0, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// Forward-only: a stale or duplicate webhook matches zero rows.
	query := fmt.Sprintf(`
		UPDATE messages SET status = $2
		WHERE message_id = $1 AND direction = 'outbound'
		  AND (status IS NULL OR %s < %s)
	`, fmt.Sprintf(statusRankSQL, "status"), fmt.Sprintf(statusRankSQL, "$2::text"))

	result, err := s.db.ExecContext(ctx, query, providerMessageID, status)
	if err != nil {
		return 0, fmt.Errorf("set delivery status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return rows, nil
}
