package relaybox

import (
	"context"
	"fmt"

	"github.com/dmehra/relaybox/store"
)

// Stats returns aggregate mailbox counters: visible and pending message
// counts, per-direction totals, thread, draft, and allow-list sizes.
func (s *service) Stats(ctx context.Context) (*store.MailboxStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	stats, err := s.store.MailboxStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("mailbox stats: %w", err)
	}
	return stats, nil
}
