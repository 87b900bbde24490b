package relaybox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmehra/relaybox/store"
)

// ReplyHeaders holds the RFC 5322 threading headers for the next message
// in a conversation.
type ReplyHeaders struct {
	// InReplyTo is the Message-ID of the thread's most recent message.
	InReplyTo string
	// References is the space-separated reference chain: the last
	// message's references followed by its own Message-ID.
	References string
}

// Thread retrieves a thread by ID.
func (s *service) Thread(ctx context.Context, threadID string) (*store.Thread, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	t, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return nil, fmt.Errorf("get thread: %w", err)
	}
	return t, nil
}

// Threads lists threads ordered by last activity, newest first.
func (s *service) Threads(ctx context.Context, opts ListOptions) (*store.ThreadList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	list, err := s.store.ListThreads(ctx, s.clampLimit(opts))
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	return list, nil
}

// ThreadMessages returns a thread's visible messages oldest first.
func (s *service) ThreadMessages(ctx context.Context, threadID string, opts ListOptions) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	list, err := s.store.ThreadMessages(ctx, threadID, s.clampLimit(opts))
	if err != nil {
		return nil, fmt.Errorf("thread messages: %w", err)
	}
	return list, nil
}

// NextReplyHeaders computes the threading headers a reply in this thread
// should carry. Returns (nil, nil) when the thread has no messages to
// chain off, so a reply starts clean.
//
// The chain follows the thread's true tail regardless of approval: a reply
// must reference the real conversation even when parts of it are hidden.
func (s *service) NextReplyHeaders(ctx context.Context, threadID string) (*ReplyHeaders, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	last, err := s.store.LastThreadMessage(ctx, threadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("last thread message: %w", err)
	}

	return replyHeadersFor(last), nil
}

// replyHeadersFor builds the reply headers chaining off the given message.
// Returns nil when the message carries no Message-ID to chain off.
func replyHeadersFor(last *store.Message) *ReplyHeaders {
	if last.MessageID == "" {
		return nil
	}

	refs := strings.TrimSpace(last.References)
	if refs == "" {
		refs = last.MessageID
	} else {
		refs = refs + " " + last.MessageID
	}

	return &ReplyHeaders{
		InReplyTo:  last.MessageID,
		References: refs,
	}
}
