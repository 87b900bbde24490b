package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmehra/relaybox/store"
)

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return "", fmt.Errorf("%w: %q", store.ErrInvalidEmail, email)
	}
	return email, nil
}

func (s *Store) ApproveSender(ctx context.Context, email, name string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// Allow-list upsert and retroactive reveal commit together. See the
	// store package documentation for the race this closes.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO approved_senders (email, name, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
	`, email, name, time.Now().UTC()); err != nil {
		return 0, fmt.Errorf("upsert approved sender: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		UPDATE messages SET approved = TRUE
		WHERE approved = FALSE AND lower(from_addr) = $1
	`, email)
	if err != nil {
		return 0, fmt.Errorf("reveal messages: %w", err)
	}

	revealed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: %v", store.ErrTransactionFailed, err)
	}

	return revealed, nil
}

func (s *Store) RevokeSender(ctx context.Context, email string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	// Already-approved messages stay visible; revocation only affects
	// future ingests.
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM approved_senders WHERE email = $1`, email)
	if err != nil {
		return fmt.Errorf("revoke sender: %w", err)
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

func (s *Store) IsApprovedSender(ctx context.Context, email string) (bool, error) {
	if err := s.checkConnected(); err != nil {
		return false, err
	}

	email, err := normalizeEmail(email)
	if err != nil {
		return false, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	var approved bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM approved_senders WHERE email = $1)`,
		email).Scan(&approved); err != nil {
		return false, fmt.Errorf("check approved sender: %w", err)
	}

	return approved, nil
}

func (s *Store) ListApprovedSenders(ctx context.Context) ([]*store.ApprovedSender, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT email, name, created_at FROM approved_senders ORDER BY email`)
	if err != nil {
		return nil, fmt.Errorf("list approved senders: %w", err)
	}
	defer rows.Close()

	var senders []*store.ApprovedSender
	for rows.Next() {
		var a store.ApprovedSender
		if err := rows.Scan(&a.Email, &a.Name, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan approved sender: %w", err)
		}
		senders = append(senders, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approved senders: %w", err)
	}

	return senders, nil
}
