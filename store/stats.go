package store

import "context"

// MailboxStats holds aggregate statistics for the mailbox.
type MailboxStats struct {
	// TotalMessages counts approved messages only.
	TotalMessages int64
	// PendingApproval counts messages hidden behind the approval gate.
	PendingApproval int64
	// Inbound and Outbound count approved messages by direction.
	Inbound  int64
	Outbound int64
	// ThreadCount is the total number of threads.
	ThreadCount int64
	// DraftCount is the total number of drafts.
	DraftCount int64
	// ApprovedSenders is the size of the allow-list.
	ApprovedSenders int64
}

// StatsStore provides aggregate mailbox statistics.
type StatsStore interface {
	// MailboxStats returns aggregate statistics for the mailbox.
	// This should be implemented as a single efficient query (conditional
	// aggregation) rather than multiple round-trips.
	MailboxStats(ctx context.Context) (*MailboxStats, error)
}
