package relaybox

import (
	"context"
	"fmt"
	"time"

	"github.com/dmehra/relaybox/store"
)

// deliveryEventStatus maps provider webhook event types to delivery
// statuses. Event types absent from this map (delivery delays, opens,
// clicks) carry no status transition.
var deliveryEventStatus = map[string]store.DeliveryStatus{
	"email.sent":       store.StatusSent,
	"email.delivered":  store.StatusDelivered,
	"email.bounced":    store.StatusBounced,
	"email.complained": store.StatusComplained,
}

// HandleDeliveryEvent applies a provider delivery webhook to the outbound
// message it references.
//
// Unknown event types and events without a provider message id are ignored:
// providers add event types over time and a webhook endpoint must not start
// failing when they do. Status transitions are forward-only; a stale or
// repeated webhook is a no-op. Returns true if a message's status advanced.
func (s *service) HandleDeliveryEvent(ctx context.Context, eventType, providerMessageID string) (bool, error) {
	if err := s.checkConnected(); err != nil {
		return false, err
	}

	status, ok := deliveryEventStatus[eventType]
	if !ok || providerMessageID == "" {
		s.logger.Debug("ignoring delivery event",
			"type", eventType, "provider_id", providerMessageID)
		return false, nil
	}

	changed, err := s.store.SetDeliveryStatus(ctx, providerMessageID, status)
	if err != nil {
		return false, fmt.Errorf("set delivery status: %w", err)
	}
	if changed == 0 {
		return false, nil
	}

	s.logger.Debug("delivery status advanced",
		"provider_id", providerMessageID, "status", status)

	if err := s.events.StatusChanged.Publish(ctx, MessageStatusChangedEvent{
		MessageID: providerMessageID,
		Status:    string(status),
		ChangedAt: time.Now().UTC(),
	}); err != nil {
		if s.opts.eventErrorsFatal {
			return true, &EventPublishError{
				Event:     "StatusChanged",
				MessageID: providerMessageID,
				Err:       err,
			}
		}
		s.opts.safeEventPublishFailure("StatusChanged", err)
	}

	return true, nil
}
