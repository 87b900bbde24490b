package postgres

import (
	"context"
	"fmt"

	"github.com/dmehra/relaybox/store"
)

// MailboxStats returns aggregate statistics in a single round-trip using
// conditional aggregation plus scalar subqueries.
func (s *Store) MailboxStats(ctx context.Context) (*store.MailboxStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.opts.timeout)
	defer cancel()

	stats := &store.MailboxStats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN approved THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN NOT approved THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN approved AND direction = 'inbound' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN approved AND direction = 'outbound' THEN 1 ELSE 0 END), 0),
			(SELECT COUNT(*) FROM threads),
			(SELECT COUNT(*) FROM drafts),
			(SELECT COUNT(*) FROM approved_senders)
		FROM messages
	`).Scan(
		&stats.TotalMessages, &stats.PendingApproval, &stats.Inbound, &stats.Outbound,
		&stats.ThreadCount, &stats.DraftCount, &stats.ApprovedSenders,
	)
	if err != nil {
		return nil, fmt.Errorf("query mailbox stats: %w", err)
	}

	return stats, nil
}
