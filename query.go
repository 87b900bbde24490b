package relaybox

import (
	"context"
	"fmt"

	"github.com/dmehra/relaybox/store"
)

// Message retrieves a message by ID, with labels and attachments loaded.
// Messages from unapproved senders are reported as not found.
func (s *service) Message(ctx context.Context, id string) (*store.Message, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	msg, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return msg, nil
}

// Messages lists messages matching the filters, newest first by default.
// Only messages from approved senders appear, and archived messages are
// skipped unless the filters name the archived flag explicitly.
func (s *service) Messages(ctx context.Context, filters []store.Filter, opts ListOptions) (*store.MessageList, error) {
	if err := s.checkConnected(); err != nil {
		return nil, err
	}

	list, err := s.store.Find(ctx, filters, s.clampLimit(opts))
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}
	return list, nil
}

// CountMessages counts messages matching the filters.
func (s *service) CountMessages(ctx context.Context, filters []store.Filter) (int64, error) {
	if err := s.checkConnected(); err != nil {
		return 0, err
	}

	n, err := s.store.Count(ctx, filters)
	if err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}
	return n, nil
}

// SetArchived sets the archived flag of a message.
func (s *service) SetArchived(ctx context.Context, id string, archived bool) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if err := s.store.SetArchived(ctx, id, archived); err != nil {
		return fmt.Errorf("set archived: %w", err)
	}
	return nil
}

// SetApproved overrides the approval flag of a single message, without
// touching the sender allow-list. Revealing one message from an unknown
// sender, or re-hiding one, does not affect the sender's other mail.
func (s *service) SetApproved(ctx context.Context, id string, approved bool) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if err := s.store.SetApproved(ctx, id, approved); err != nil {
		return fmt.Errorf("set approved: %w", err)
	}
	return nil
}

// AddLabels attaches labels to a message. Labels the message already
// carries are ignored.
func (s *service) AddLabels(ctx context.Context, id string, labels ...string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if len(labels) == 0 {
		return nil
	}
	for _, l := range labels {
		if l == "" {
			return fmt.Errorf("%w: empty label", ErrInvalidID)
		}
	}

	if err := s.store.AddLabels(ctx, id, labels...); err != nil {
		return fmt.Errorf("add labels: %w", err)
	}
	return nil
}

// RemoveLabel detaches a label from a message. Removing a label the
// message does not carry is a no-op.
func (s *service) RemoveLabel(ctx context.Context, id, label string) error {
	if err := s.checkConnected(); err != nil {
		return err
	}

	if label == "" {
		return fmt.Errorf("%w: empty label", ErrInvalidID)
	}

	if err := s.store.RemoveLabel(ctx, id, label); err != nil {
		return fmt.Errorf("remove label: %w", err)
	}
	return nil
}
