package memory

import (
	"context"

	"github.com/dmehra/relaybox/store"
)

func (s *Store) MailboxStats(ctx context.Context) (*store.MailboxStats, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &store.MailboxStats{
		ThreadCount:     int64(len(s.threads)),
		DraftCount:      int64(len(s.drafts)),
		ApprovedSenders: int64(len(s.approved)),
	}
	for _, m := range s.messages {
		if !m.Approved {
			stats.PendingApproval++
			continue
		}
		stats.TotalMessages++
		if m.Direction == store.DirectionInbound {
			stats.Inbound++
		} else {
			stats.Outbound++
		}
	}
	return stats, nil
}
