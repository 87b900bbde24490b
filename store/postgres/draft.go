package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra/relaybox/store"
)

const draftColumns = `id, thread_id, to_addr, cc_addr, bcc_addr, subject, body, created_at, updated_at`

func scanDraft(row rowScanner) (*store.Draft, error) {
	var d store.Draft
	var threadID sql.NullString

	err := row.Scan(&d.ID, &threadID, &d.To, &d.Cc, &d.Bcc, &d.Subject, &d.Body,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if threadID.Valid {
		d.ThreadID = threadID.String
	}
	return &d, nil
}

func (s *Store) CreateDraft(ctx context.Context, data store.DraftData) (*store.Draft, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if data.ThreadID != "" {
		if _, err := uuid.Parse(data.ThreadID); err != nil {
			return nil, store.ErrInvalidID
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	now := time.Now().UTC()
	d := &store.Draft{
		ID:        uuid.New().String(),
		ThreadID:  data.ThreadID,
		To:        data.To,
		Cc:        data.Cc,
		Bcc:       data.Bcc,
		Subject:   data.Subject,
		Body:      data.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, thread_id, to_addr, cc_addr, bcc_addr, subject, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, d.ID, nullable(d.ThreadID), d.To, d.Cc, d.Bcc, d.Subject, d.Body, now, now)
	if err != nil {
		return nil, fmt.Errorf("insert draft: %w", err)
	}

	return d, nil
}

func (s *Store) GetDraft(ctx context.Context, id string) (*store.Draft, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM drafts WHERE id = $1`, draftColumns)
	d, err := scanDraft(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("get draft: %w", err)
	}

	return d, nil
}

func (s *Store) UpdateDraft(ctx context.Context, id string, patch store.DraftPatch) (*store.Draft, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if _, err := uuid.Parse(id); err != nil {
		return nil, store.ErrInvalidID
	}
	if patch.ThreadID != nil && *patch.ThreadID != "" {
		if _, err := uuid.Parse(*patch.ThreadID); err != nil {
			return nil, store.ErrInvalidID
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// Dynamic SET list: only the non-nil patch fields change.
	set := []string{"updated_at = $1"}
	args := []any{time.Now().UTC()}

	addSet := func(col string, v any) {
		args = append(args, v)
		set = append(set, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if patch.ThreadID != nil {
		addSet("thread_id", nullable(*patch.ThreadID))
	}
	if patch.To != nil {
		addSet("to_addr", *patch.To)
	}
	if patch.Cc != nil {
		addSet("cc_addr", *patch.Cc)
	}
	if patch.Bcc != nil {
		addSet("bcc_addr", *patch.Bcc)
	}
	if patch.Subject != nil {
		addSet("subject", *patch.Subject)
	}
	if patch.Body != nil {
		addSet("body", *patch.Body)
	}

	args = append(args, id)
	query := fmt.Sprintf(`
		UPDATE drafts SET %s
		WHERE id = $%d
		RETURNING %s
	`, joinSet(set), len(args), draftColumns)

	d, err := scanDraft(s.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("update draft: %w", err)
	}

	return d, nil
}

func joinSet(set []string) string {
	out := set[0]
	for _, s := range set[1:] {
		out += ", " + s
	}
	return out
}

func (s *Store) DeleteDraft(ctx context.Context, id string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if _, err := uuid.Parse(id); err != nil {
		return store.ErrInvalidID
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	result, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
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

func (s *Store) ListDrafts(ctx context.Context, opts store.ListOptions) (*store.DraftList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	if opts.Limit <= 0 {
		opts.Limit = 20
	}

	var total int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM drafts`).Scan(&total); err != nil {
		return nil, fmt.Errorf("count drafts: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM drafts
		ORDER BY updated_at DESC
		LIMIT $1 OFFSET $2
	`, draftColumns)

	rows, err := s.db.QueryContext(ctx, query, opts.Limit+1, opts.Offset)
	if err != nil {
		return nil, fmt.Errorf("query drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*store.Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		drafts = append(drafts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate drafts: %w", err)
	}

	hasMore := len(drafts) > opts.Limit
	if hasMore {
		drafts = drafts[:opts.Limit]
	}

	return &store.DraftList{
		Drafts:  drafts,
		Total:   total,
		HasMore: hasMore,
	}, nil
}
