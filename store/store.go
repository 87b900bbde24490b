// Package store provides interfaces and types for mailbox storage.
// Implementations are in the store/postgres and store/memory subpackages.
//
// # Architectural Principle: No Distributed Locks
//
// This package is designed to avoid distributed locks entirely. Distributed
// locks introduce complexity, single points of failure, and performance
// bottlenecks. Instead, all concurrency concerns are handled through:
//
//  1. Atomic Database Operations: Use database-native atomic operations
//     like PostgreSQL's INSERT ON CONFLICT. These are guaranteed to be
//     atomic by the database engine.
//
//  2. Idempotency via Unique Constraints: Instead of locking before write,
//     use unique indexes/constraints and handle conflicts via return status.
//     The database enforces uniqueness atomically - no external coordination
//     needed.
//
//  3. Transactional Batches: Multi-row operations (ingest with thread
//     resolution, approval with retroactive reveal) use database
//     transactions for atomicity, not distributed locks.
//
// Example - Sender Approval Racing an Ingest:
//
//	// WRONG: Check-then-act around a lock (DO NOT USE)
//	lock.Acquire("approve:" + email)
//	defer lock.Release()
//	store.AddApproved(email)
//	store.RevealMessagesFrom(email)
//
//	// CORRECT: Single transaction
//	count, err := store.ApproveSender(ctx, email, name)
//	// The upsert and the retroactive UPDATE commit together. An ingest
//	// running concurrently either sees the committed allow-list row (and
//	// inserts approved) or commits first (and is caught by the UPDATE).
//	// Either way the message ends up approved exactly once.
//
// This design provides:
//   - Simpler architecture (no external lock service)
//   - Better reliability (database ACID guarantees vs lock service availability)
//   - Higher performance (no extra round-trips for lock acquire/release)
//   - Automatic deadlock prevention (no distributed deadlocks possible)
package store

import (
	"context"
)

// Store is the storage interface for the mailbox.
//
// All operations must be safe for concurrent use. Implementations must use
// database-level atomicity (transactions, atomic operations) rather than
// external locking mechanisms. See package documentation for details.
type Store interface {
	// Lifecycle
	Connect(ctx context.Context) error
	Close(ctx context.Context) error

	// Message operations - messages are immutable once written
	MessageStore

	// Thread operations - threads are derived from message chains
	ThreadStore

	// Approval operations - the sender allow-list and the approval gate
	ApprovalStore

	// Search operations - indexed search plus the substring fallback
	SearchStore

	// Draft operations - drafts are mutable messages being composed
	DraftStore

	// Stats operations - aggregate mailbox statistics
	StatsStore
}

// MessageStoreReader provides read operations for messages.
//
// Visibility: every reader method only sees approved messages. A message
// hidden behind the approval gate produces ErrNotFound, indistinguishable
// from a message that does not exist.
type MessageStoreReader interface {
	// Get retrieves a message by ID, with labels and attachments loaded.
	// Returns ErrNotFound if the message doesn't exist or is unapproved.
	Get(ctx context.Context, id string) (*Message, error)

	// Find retrieves messages matching the filters, newest first by default.
	Find(ctx context.Context, filters []Filter, opts ListOptions) (*MessageList, error)

	// Count returns the count of messages matching the filters.
	Count(ctx context.Context, filters []Filter) (int64, error)

	// GetAttachment retrieves one attachment of an approved message.
	// Returns ErrNotFound if the message is missing, unapproved, or has no
	// such attachment.
	GetAttachment(ctx context.Context, messageID, attachmentID string) (*Attachment, error)
}

// MessageStoreMutator provides mutation operations for messages.
// Message content is immutable; only flags, status, and labels change.
type MessageStoreMutator interface {
	// SetArchived sets the archived flag of an approved message.
	SetArchived(ctx context.Context, id string, archived bool) error

	// SetApproved sets the approval flag of a single message directly,
	// bypassing the sender allow-list. Unlike the other mutators it can
	// reach hidden messages, since its purpose is to reveal or re-hide
	// them one at a time. Returns ErrNotFound if the message does not
	// exist.
	SetApproved(ctx context.Context, id string, approved bool) error

	// AddLabels attaches labels to an approved message, ignoring labels it
	// already carries.
	AddLabels(ctx context.Context, id string, labels ...string) error

	// RemoveLabel detaches a label. Removing a label the message does not
	// carry is a no-op.
	RemoveLabel(ctx context.Context, id string, label string) error

	// SetDeliveryStatus applies a provider delivery status to the outbound
	// message with the given provider message ID. Transitions only move
	// forward; a stale or repeated status is a silent no-op. Returns the
	// number of rows changed (0 or 1). An unknown provider message ID is
	// not an error.
	SetDeliveryStatus(ctx context.Context, providerMessageID string, status DeliveryStatus) (int64, error)
}

// MessageStoreCreator provides message creation operations.
//
// Concurrency: All operations are safe for concurrent use and rely on
// database-level atomicity. No external locking is required or desired.
type MessageStoreCreator interface {
	// CreateInbound atomically persists a received message: thread
	// resolution via In-Reply-To, thread creation or update, the approval
	// check against the allow-list, and attachment rows all commit in one
	// transaction.
	//
	// The approval flag MUST be evaluated inside the same transaction as
	// the insert (e.g. an EXISTS subquery against the allow-list), so that
	// an ingest racing ApproveSender can never leave a message from an
	// approved sender hidden.
	CreateInbound(ctx context.Context, data InboundData) (*Message, error)

	// CreateOutbound persists a sent message. Outbound messages are always
	// approved and start with delivery status "sent". The thread's
	// last-message timestamp and count update in the same transaction.
	CreateOutbound(ctx context.Context, data OutboundData) (*Message, error)
}

// MessageStore provides operations for stored messages.
//
// Composed of:
//   - MessageStoreReader: Read operations (Get, Find, Count, GetAttachment)
//   - MessageStoreMutator: Flag operations (SetArchived, labels, delivery status)
//   - MessageStoreCreator: Creation operations (CreateInbound, CreateOutbound)
type MessageStore interface {
	MessageStoreReader
	MessageStoreMutator
	MessageStoreCreator
}

// ThreadStore provides operations for conversation threads.
type ThreadStore interface {
	// GetThread retrieves a thread by ID.
	// Returns ErrNotFound if the thread doesn't exist.
	GetThread(ctx context.Context, id string) (*Thread, error)

	// ListThreads returns threads ordered by last activity, newest first.
	ListThreads(ctx context.Context, opts ListOptions) (*ThreadList, error)

	// ThreadMessages returns the approved messages of a thread in
	// chronological order, with labels and attachments loaded.
	ThreadMessages(ctx context.Context, threadID string, opts ListOptions) (*MessageList, error)

	// LastThreadMessage returns the most recently created message in a
	// thread regardless of approval, since reply headers must chain off
	// the real tail of the conversation. Returns ErrNotFound for an empty
	// or unknown thread.
	LastThreadMessage(ctx context.Context, threadID string) (*Message, error)
}

// ApprovalStore manages the sender allow-list.
//
// Concurrency: ApproveSender must be a single transaction so the allow-list
// insert and the retroactive reveal commit atomically. See the package
// documentation for why this replaces a distributed lock.
type ApprovalStore interface {
	// ApproveSender adds an address to the allow-list (idempotently) and
	// marks every hidden message from that address approved, returning how
	// many messages were revealed.
	ApproveSender(ctx context.Context, email, name string) (int64, error)

	// RevokeSender removes an address from the allow-list. Messages already
	// approved stay approved. Returns ErrNotFound if the address was not
	// on the list.
	RevokeSender(ctx context.Context, email string) error

	// IsApprovedSender reports whether an address is on the allow-list.
	IsApprovedSender(ctx context.Context, email string) (bool, error)

	// ListApprovedSenders returns the allow-list ordered by address.
	ListApprovedSenders(ctx context.Context) ([]*ApprovedSender, error)
}

// SearchStore provides full-text search over approved messages.
type SearchStore interface {
	// SearchMessages runs the query against the full-text index, ranked by
	// relevance. Returns ErrQuerySyntax if the query string is malformed
	// for the index's query language; callers should then degrade to
	// ScanMessages.
	SearchMessages(ctx context.Context, query SearchQuery) (*MessageList, error)

	// ScanMessages performs a case-insensitive substring match over subject
	// and body, newest first. It accepts any query string and is the
	// fallback when SearchMessages rejects the syntax.
	ScanMessages(ctx context.Context, query SearchQuery) (*MessageList, error)
}

// DraftStore provides operations for draft messages.
type DraftStore interface {
	// CreateDraft creates a draft; all content fields are optional.
	CreateDraft(ctx context.Context, data DraftData) (*Draft, error)

	// GetDraft retrieves a draft by ID.
	// Returns ErrNotFound if the draft doesn't exist.
	GetDraft(ctx context.Context, id string) (*Draft, error)

	// UpdateDraft applies a partial update and returns the updated draft.
	// Returns ErrNotFound if the draft doesn't exist.
	UpdateDraft(ctx context.Context, id string, patch DraftPatch) (*Draft, error)

	// DeleteDraft permanently removes a draft.
	// Returns ErrNotFound if the draft doesn't exist.
	DeleteDraft(ctx context.Context, id string) error

	// ListDrafts returns drafts ordered by last update, newest first.
	ListDrafts(ctx context.Context, opts ListOptions) (*DraftList, error)
}
