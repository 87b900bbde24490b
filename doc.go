// Package relaybox provides a moderated, threaded email mailbox library
// for Go.
//
// Inbound mail is ingested into conversation threads; messages from
// senders not on the allow-list are stored but hidden from every read path
// until the sender is approved. Outbound mail is composed as mutable
// drafts and delivered through a pluggable provider client, after which
// the sent message is persisted immutably alongside the rest of the
// thread. Storage, blob content, and delivery are all pluggable.
//
// # Basic Usage
//
//	// In-memory store for testing
//	st := memory.New()
//
//	svc, err := relaybox.NewService(
//	    relaybox.WithStore(st),
//	    relaybox.WithSender(resend.New(apiKey)),
//	    relaybox.WithFromAddress("me@example.com"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Connect initializes schema and the event bus
//	if err := svc.Connect(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer svc.Close(ctx)
//
//	// Approve a sender; their held messages become visible
//	revealed, err := svc.ApproveSender(ctx, "Alice@Example.com", "Alice")
//
//	// Compose and send a reply in a thread
//	draft, _ := svc.CreateDraft(ctx, store.DraftData{
//	    ThreadID: threadID,
//	    To:       "alice@example.com",
//	    Subject:  "Re: hello",
//	    Body:     "Hi Alice",
//	})
//	msg, err := svc.SendDraft(ctx, draft.ID)
//
// # Visibility
//
// Every read — Get, Find, search, thread listings, attachments — only sees
// messages from approved senders. A hidden message and a missing message
// are both reported as not found, so callers cannot probe the moderation
// queue. Approval is retroactive and atomic: ApproveSender reveals a
// sender's held messages in the same transaction that records the
// approval.
//
// # Search
//
// Search runs against a full-text index kept transactionally in sync with
// message content. A query the index rejects as malformed silently
// degrades to a case-insensitive substring scan; the result notes the
// degradation but never the syntax error.
//
// # Storage Backends
//
// The store package provides implementations for:
//   - PostgreSQL (store/postgres) - accepts *sql.DB or a DSN
//   - In-memory (store/memory) - for testing
//
// Attachment content lives in a blob store (blob/s3, blob/gcs,
// blob/cached, blob/memory).
//
// # Events
//
// The service publishes typed events for ingestion, approval, sends, and
// delivery status changes via github.com/rbaliyan/event/v3. Pass
// WithRedisClient or WithEventTransport to route them beyond the process;
// the default transport is a no-op.
package relaybox
