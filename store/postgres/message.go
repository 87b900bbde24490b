package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/dmehra/relaybox/store"
)

// messageColumns is the canonical SELECT column list for scanning messages.
// It must match the field order expected by scanMessage.
const messageColumns = `id, thread_id, message_id, in_reply_to, refs,
       from_addr, to_addr, cc_addr, bcc_addr, subject,
       body_text, body_html, headers, direction, approved, archived, status, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*store.Message, error) {
	var msg store.Message
	var messageID, inReplyTo, status sql.NullString

	err := row.Scan(
		&msg.ID, &msg.ThreadID, &messageID, &inReplyTo, &msg.References,
		&msg.From, &msg.To, &msg.Cc, &msg.Bcc, &msg.Subject,
		&msg.BodyText, &msg.BodyHTML, &msg.Headers, &msg.Direction,
		&msg.Approved, &msg.Archived, &status, &msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if messageID.Valid {
		msg.MessageID = messageID.String
	}
	if inReplyTo.Valid {
		msg.InReplyTo = inReplyTo.String
	}
	if status.Valid {
		msg.Status = store.DeliveryStatus(status.String)
	}

	return &msg, nil
}

// nullable maps "" to NULL so optional header fields stay NULL in the schema.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// loadDetails populates labels and attachments for the given messages in
// two batch queries instead of 2N lookups.
func (s *Store) loadDetails(ctx context.Context, messages []*store.Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]string, len(messages))
	byID := make(map[string]*store.Message, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
		byID[m.ID] = m
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, label FROM message_labels WHERE message_id = ANY($1) ORDER BY label`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query labels: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msgID, label string
		if err := rows.Scan(&msgID, &label); err != nil {
			return fmt.Errorf("scan label: %w", err)
		}
		if m := byID[msgID]; m != nil {
			m.Labels = append(m.Labels, label)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate labels: %w", err)
	}

	arows, err := s.db.QueryContext(ctx,
		`SELECT id, message_id, filename, content_type, size, blob_key, created_at
		 FROM attachments WHERE message_id = ANY($1) ORDER BY created_at`,
		pq.Array(ids))
	if err != nil {
		return fmt.Errorf("query attachments: %w", err)
	}
	defer arows.Close()

	for arows.Next() {
		var a store.Attachment
		if err := arows.Scan(&a.ID, &a.MessageID, &a.Filename, &a.ContentType,
			&a.Size, &a.BlobKey, &a.CreatedAt); err != nil {
			return fmt.Errorf("scan attachment: %w", err)
		}
		if m := byID[a.MessageID]; m != nil {
			m.Attachments = append(m.Attachments, a)
		}
	}
	return arows.Err()
}
