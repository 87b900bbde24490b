package relaybox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dmehra/relaybox/sender"
	"github.com/dmehra/relaybox/store"
)

// SendDraft delivers a draft through the email provider, persists the sent
// message, and deletes the draft.
//
// Ordering is strict: provider send, then persist, then delete. A provider
// or persistence failure leaves the draft intact for retry. A failure
// deleting the draft after a successful send is only logged; the caller
// still gets the sent message, and retrying the leftover draft sends the
// email again (at-least-once, never silently lost).
func (s *service) SendDraft(ctx context.Context, id string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	draft, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}

	if strings.TrimSpace(draft.To) == "" {
		return nil, ErrNoRecipient
	}

	ctx, endSpan := s.otel.startSpan(ctx, "relaybox.send",
		attribute.String("draft_id", draft.ID),
	)
	start := time.Now()
	var sendErr error
	defer func() {
		endSpan(sendErr)
		s.otel.recordSend(ctx, time.Since(start), len(splitAddresses(draft.To)), sendErr)
	}()

	// Bound concurrent provider calls.
	if err := s.sendSem.Acquire(ctx, 1); err != nil {
		sendErr = err
		return nil, sendErr
	}
	defer s.sendSem.Release(1)

	// Chain onto the conversation when the draft belongs to a thread.
	var headers *ReplyHeaders
	if draft.ThreadID != "" {
		headers, err = s.NextReplyHeaders(ctx, draft.ThreadID)
		if err != nil {
			sendErr = err
			return nil, fmt.Errorf("reply headers: %w", err)
		}
	}

	msg := &sender.Message{
		From:    s.opts.fromAddress,
		To:      splitAddresses(draft.To),
		Cc:      splitAddresses(draft.Cc),
		Bcc:     splitAddresses(draft.Bcc),
		Subject: draft.Subject,
		Text:    draft.Body,
	}
	if headers != nil {
		msg.Headers = map[string]string{
			"In-Reply-To": headers.InReplyTo,
			"References":  headers.References,
		}
	}

	result, err := s.sender.Send(ctx, msg)
	if err != nil {
		sendErr = &UpstreamError{Op: "send", Err: err}
		return nil, sendErr
	}

	sentAt := time.Now().UTC()
	out := store.OutboundData{
		ThreadID:  draft.ThreadID,
		MessageID: result.ProviderID,
		From:      s.opts.fromAddress,
		To:        draft.To,
		Cc:        draft.Cc,
		Bcc:       draft.Bcc,
		Subject:   draft.Subject,
		BodyText:  draft.Body,
		SentAt:    sentAt,
	}
	if headers != nil {
		out.InReplyTo = headers.InReplyTo
		out.References = headers.References
	}

	sent, err := s.store.CreateOutbound(ctx, out)
	if err != nil {
		// The email left the building but we could not record it. Keep
		// the draft so nothing is silently lost; a retry duplicates the
		// send rather than dropping it.
		sendErr = err
		s.logger.Error("sent message not persisted, draft kept",
			"draft_id", draft.ID, "provider_id", result.ProviderID, "error", err)
		return nil, fmt.Errorf("persist sent message: %w", err)
	}

	if err := s.store.DeleteDraft(ctx, draft.ID); err != nil {
		s.logger.Warn("failed to delete draft after send",
			"draft_id", draft.ID, "message_id", sent.ID, "error", err)
	}

	s.logger.Info("draft sent",
		"draft_id", draft.ID, "message_id", sent.ID, "provider_id", result.ProviderID)

	if err := s.events.MessageSent.Publish(ctx, MessageSentEvent{
		MessageID: sent.ID,
		DraftID:   draft.ID,
		ThreadID:  sent.ThreadID,
		To:        splitAddresses(draft.To),
		Subject:   draft.Subject,
		SentAt:    sentAt,
	}); err != nil {
		if s.opts.eventErrorsFatal {
			sendErr = err
			return sent, &EventPublishError{
				Event:     "MessageSent",
				MessageID: sent.ID,
				Err:       err,
			}
		}
		s.opts.safeEventPublishFailure("MessageSent", err)
	}

	return sent, nil
}

// splitAddresses splits a comma-separated address list, dropping empties.
func splitAddresses(addrs string) []string {
	if strings.TrimSpace(addrs) == "" {
		return nil
	}
	parts := strings.Split(addrs, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
