package relaybox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dmehra/relaybox/store"
)

// Ingest stores an inbound message.
//
// Thread resolution, the allow-list check, and attachment rows all commit in
// one store transaction: a message whose In-Reply-To names a known message
// joins that message's thread, otherwise it starts a new one, and its
// approved flag reflects the allow-list state at commit time. A concurrent
// ApproveSender can therefore never leave a message from an approved sender
// hidden.
func (s *service) Ingest(ctx context.Context, data store.InboundData) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	if strings.TrimSpace(data.From) == "" {
		return nil, fmt.Errorf("%w: missing from address", ErrInvalidEmail)
	}
	if data.ReceivedAt.IsZero() {
		data.ReceivedAt = time.Now().UTC()
	}

	ctx, endSpan := s.otel.startSpan(ctx, "relaybox.ingest",
		attribute.String("from", data.From),
	)
	start := time.Now()
	var ingestErr error
	var approved bool
	defer func() {
		endSpan(ingestErr)
		s.otel.recordIngest(ctx, time.Since(start), approved, ingestErr)
	}()

	msg, err := s.store.CreateInbound(ctx, data)
	if err != nil {
		ingestErr = err
		return nil, fmt.Errorf("create inbound message: %w", err)
	}
	approved = msg.Approved

	s.logger.Debug("message ingested",
		"id", msg.ID, "thread_id", msg.ThreadID, "from", msg.From, "approved", msg.Approved)

	if err := s.events.MessageIngested.Publish(ctx, MessageIngestedEvent{
		MessageID:  msg.ID,
		ThreadID:   msg.ThreadID,
		From:       msg.From,
		Subject:    msg.Subject,
		Approved:   msg.Approved,
		IngestedAt: msg.CreatedAt,
	}); err != nil {
		if s.opts.eventErrorsFatal {
			ingestErr = err
			return msg, &EventPublishError{
				Event:     "MessageIngested",
				MessageID: msg.ID,
				Err:       err,
			}
		}
		s.opts.safeEventPublishFailure("MessageIngested", err)
	}

	return msg, nil
}
