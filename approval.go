package relaybox

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/dmehra/relaybox/store"
)

// ApproveSender adds a sender to the allow-list and retroactively approves
// their hidden messages, returning how many were revealed. The allow-list
// upsert and the reveal commit in one store transaction; an ingest racing
// this call settles consistent with the final allow-list state either way.
//
// Approving an already approved sender updates the display name and
// reveals nothing.
func (s *service) ApproveSender(ctx context.Context, email, name string) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	ctx, endSpan := s.otel.startSpan(ctx, "relaybox.approve_sender",
		attribute.String("email", email),
	)
	var approveErr error
	var revealed int64
	defer func() {
		endSpan(approveErr)
		s.otel.recordApprove(ctx, revealed, approveErr)
	}()

	revealed, approveErr = s.store.ApproveSender(ctx, email, name)
	if approveErr != nil {
		return 0, fmt.Errorf("approve sender: %w", approveErr)
	}

	s.logger.Info("sender approved", "email", email, "revealed", revealed)

	if err := s.events.SenderApproved.Publish(ctx, SenderApprovedEvent{
		Email:      email,
		Name:       name,
		Revealed:   revealed,
		ApprovedAt: time.Now().UTC(),
	}); err != nil {
		if s.opts.eventErrorsFatal {
			approveErr = err
			return revealed, &EventPublishError{Event: "SenderApproved", Err: err}
		}
		s.opts.safeEventPublishFailure("SenderApproved", err)
	}

	return revealed, nil
}

// RevokeSender removes a sender from the allow-list. Revocation is not
// retroactive: messages already approved stay visible; only future
// ingests from this sender are hidden.
func (s *service) RevokeSender(ctx context.Context, email string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if err := s.store.RevokeSender(ctx, email); err != nil {
		return fmt.Errorf("revoke sender: %w", err)
	}

	s.logger.Info("sender revoked", "email", email)
	return nil
}

// IsApprovedSender reports whether an address is on the allow-list.
func (s *service) IsApprovedSender(ctx context.Context, email string) (bool, error) {
	if err := s.checkConnected(); err != nil {
		return false, err
	}

	ok, err := s.store.IsApprovedSender(ctx, email)
	if err != nil {
		return false, fmt.Errorf("check approved sender: %w", err)
	}
	return ok, nil
}

// ApprovedSenders returns the allow-list ordered by address.
func (s *service) ApprovedSenders(ctx context.Context) ([]*store.ApprovedSender, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	senders, err := s.store.ListApprovedSenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("list approved senders: %w", err)
	}
	return senders, nil
}
