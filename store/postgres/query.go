package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/dmehra/relaybox/store"
)

func (s *Store) Get(ctx context.Context, id string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// Unapproved rows are invisible here: the same ErrNotFound covers a
	// missing message and a hidden one.
	query := fmt.Sprintf(`
		SELECT %s
		FROM messages
		WHERE id = $1 AND approved = TRUE
	`, messageColumns)

	msg, err := scanMessage(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get message: %w", err)
	}

	if err := s.loadDetails(ctx, []*store.Message{msg}); err != nil {
		return nil, err
	}

	return msg, nil
}

func (s *Store) Find(ctx context.Context, filters []store.Filter, opts store.ListOptions) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// Apply defaults
	if opts.Limit <= 0 {
		opts.Limit = 20
	}
	if opts.SortBy == "" {
		opts.SortBy = "created_at"
		opts.SortOrder = store.SortDesc
	}

	where, args, err := s.buildWhereClause(store.WithoutArchived(filters))
	if err != nil {
		return nil, err
	}
	where = where + " AND approved = TRUE"

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM messages WHERE %s`, where)
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count messages: %w", err)
	}

	sortOrder := "DESC"
	if opts.SortOrder == store.SortAsc {
		sortOrder = "ASC"
	}
	sortField := mapSortField(opts.SortBy)

	query := fmt.Sprintf(`
		SELECT %s
		FROM messages
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d
	`, messageColumns, where, sortField, sortOrder, len(args)+1, len(args)+2)
	args = append(args, opts.Limit+1, opts.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	hasMore := len(messages) > opts.Limit
	if hasMore {
		messages = messages[:opts.Limit]
	}

	return &store.MessageList{
		Messages: messages,
		Total:    total,
		HasMore:  hasMore,
	}, nil
}

func (s *Store) Count(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	where, args, err := s.buildWhereClause(store.WithoutArchived(filters))
	if err != nil {
		return 0, err
	}
	where = where + " AND approved = TRUE"

	query := fmt.Sprintf(`SELECT COUNT(*) FROM messages WHERE %s`, where)
	var count int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count: %w", err)
	}

	return count, nil
}

func (s *Store) GetAttachment(ctx context.Context, messageID, attachmentID string) (*store.Attachment, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(messageID); err != nil {
		return nil, store.ErrInvalidID
	}
	if _, err := uuid.Parse(attachmentID); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// The join on approved enforces the gate for attachment downloads too.
	query := `
		SELECT a.id, a.message_id, a.filename, a.content_type, a.size, a.blob_key, a.created_at
		FROM attachments a
		JOIN messages m ON m.id = a.message_id
		WHERE a.id = $1 AND a.message_id = $2 AND m.approved = TRUE
	`

	var a store.Attachment
	err := s.db.QueryRowContext(ctx, query, attachmentID, messageID).Scan(
		&a.ID, &a.MessageID, &a.Filename, &a.ContentType, &a.Size, &a.BlobKey, &a.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get attachment: %w", err)
	}

	return &a, nil
}

func (s *Store) buildWhereClause(filters []store.Filter) (string, []any, error) {
	if len(filters) == 0 {
		return "1=1", nil, nil
	}

	var conditions []string
	var args []any
	argIdx := 1

	for _, f := range filters {
		cond, arg, err := filterToCondition(f, &argIdx)
		if err != nil {
			return "", nil, err
		}
		if cond != "" {
			conditions = append(conditions, cond)
			if arg != nil {
				args = append(args, arg)
			}
		}
	}

	if len(conditions) == 0 {
		return "1=1", nil, nil
	}

	return strings.Join(conditions, " AND "), args, nil
}

func filterToCondition(f store.Filter, argIdx *int) (string, any, error) {
	key, ok := store.MessageFieldKey(f.Key())
	if !ok {
		return "", nil, fmt.Errorf("%w: unsupported field: %s", store.ErrFilterInvalid, f.Key())
	}
	op := f.Operator()
	val := f.Value()

	// Labels live in their own table; membership is an EXISTS subquery.
	if key == "labels" {
		if op != "contains" {
			return "", nil, fmt.Errorf("%w: labels only supports contains", store.ErrFilterInvalid)
		}
		cond := fmt.Sprintf(
			"EXISTS (SELECT 1 FROM message_labels ml WHERE ml.message_id = messages.id AND ml.label = $%d)",
			*argIdx)
		*argIdx++
		return cond, val, nil
	}

	// Sender matching is case-insensitive everywhere.
	if key == "from_addr" {
		key = "lower(from_addr)"
	}

	switch op {
	case "eq", "":
		cond := fmt.Sprintf("%s = $%d", key, *argIdx)
		*argIdx++
		return cond, val, nil
	case "ne":
		cond := fmt.Sprintf("%s != $%d", key, *argIdx)
		*argIdx++
		return cond, val, nil
	case "gt":
		cond := fmt.Sprintf("%s > $%d", key, *argIdx)
		*argIdx++
		return cond, val, nil
	case "gte":
		cond := fmt.Sprintf("%s >= $%d", key, *argIdx)
		*argIdx++
		return cond, val, nil
	case "lt":
		cond := fmt.Sprintf("%s < $%d", key, *argIdx)
		*argIdx++
		return cond, val, nil
	case "lte":
		cond := fmt.Sprintf("%s <= $%d", key, *argIdx)
		*argIdx++
		return cond, val, nil
	case "in":
		cond := fmt.Sprintf("%s = ANY($%d)", key, *argIdx)
		*argIdx++
		return cond, pq.Array(val), nil
	default:
		return "", nil, fmt.Errorf("%w: unsupported operator: %s", store.ErrFilterInvalid, op)
	}
}

func mapSortField(field string) string {
	switch field {
	case "CreatedAt", "created_at":
		return "created_at"
	case "Subject", "subject":
		return "subject"
	default:
		return "created_at"
	}
}
