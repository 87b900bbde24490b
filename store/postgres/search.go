package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/dmehra/relaybox/store"
)

// pgSyntaxError is the SQLSTATE PostgreSQL reports when to_tsquery cannot
// parse the query string.
const pgSyntaxError = "42601"

// SearchMessages runs the query through the tsvector index. The query
// string uses tsquery syntax (terms joined by & | !, quoted phrases);
// a string the parser rejects comes back as store.ErrQuerySyntax so the
// caller can degrade to ScanMessages.
func (s *Store) SearchMessages(ctx context.Context, query store.SearchQuery) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if query.Options.Limit <= 0 {
		query.Options.Limit = 20
	}

	filters := query.Filters
	if !query.IncludeArchived {
		filters = store.WithoutArchived(filters)
	}
	where, args, err := s.buildWhereClause(filters)
	if err != nil {
		return nil, err
	}
	where = where + " AND approved = TRUE AND search @@ q"

	args = append(args, query.Query)
	queryArg := len(args)

	countQuery := fmt.Sprintf(`
		SELECT COUNT(*)
		FROM messages, to_tsquery($%d::regconfig, $%d) AS q
	`, queryArg+1, queryArg) + `WHERE ` + where
	countArgs := append(append([]any{}, args...), s.opts.searchConfig)

	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, mapSearchError(err)
	}

	sqlQuery := fmt.Sprintf(`
		SELECT %s
		FROM messages, to_tsquery($%d::regconfig, $%d) AS q
		WHERE %s
		ORDER BY ts_rank(search, q) DESC, created_at DESC
		LIMIT $%d OFFSET $%d
	`, messageColumns, queryArg+1, queryArg, where, queryArg+2, queryArg+3)
	args = append(args, s.opts.searchConfig, query.Options.Limit+1, query.Options.Offset)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, mapSearchError(err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, mapSearchError(err)
	}

	hasMore := len(messages) > query.Options.Limit
	if hasMore {
		messages = messages[:query.Options.Limit]
	}

	return &store.MessageList{
		Messages: messages,
		Total:    total,
		HasMore:  hasMore,
	}, nil
}

// ScanMessages is the substring fallback: a case-insensitive ILIKE over
// subject and body, newest first. It never rejects a query string.
func (s *Store) ScanMessages(ctx context.Context, query store.SearchQuery) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if query.Options.Limit <= 0 {
		query.Options.Limit = 20
	}

	filters := query.Filters
	if !query.IncludeArchived {
		filters = store.WithoutArchived(filters)
	}
	where, args, err := s.buildWhereClause(filters)
	if err != nil {
		return nil, err
	}

	pattern := "%" + escapeLike(query.Query) + "%"
	args = append(args, pattern)
	where = where + fmt.Sprintf(
		` AND approved = TRUE AND (subject ILIKE $%d OR body_text ILIKE $%d)`,
		len(args), len(args))

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM messages WHERE %s`, where)
	var total int64
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count scan: %w", err)
	}

	sqlQuery := fmt.Sprintf(`
		SELECT %s
		FROM messages
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, messageColumns, where, len(args)+1, len(args)+2)
	args = append(args, query.Options.Limit+1, query.Options.Offset)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("scan query: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}

	hasMore := len(messages) > query.Options.Limit
	if hasMore {
		messages = messages[:query.Options.Limit]
	}

	return &store.MessageList{
		Messages: messages,
		Total:    total,
		HasMore:  hasMore,
	}, nil
}

// mapSearchError converts a tsquery parse failure into ErrQuerySyntax and
// leaves every other error alone.
func mapSearchError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pgSyntaxError {
		return fmt.Errorf("%w: %s", store.ErrQuerySyntax, pqErr.Message)
	}
	return fmt.Errorf("search query: %w", err)
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}
