package relaybox

import (
	"context"
	"errors"
	"time"

	"github.com/rbaliyan/event/v3"
)

// Event names published by the service.
const (
	EventNameMessageIngested = "relaybox.message.ingested"
	EventNameSenderApproved  = "relaybox.sender.approved"
	EventNameMessageSent     = "relaybox.message.sent"
	EventNameStatusChanged   = "relaybox.message.status_changed"
)

// MessageIngestedEvent is published when an inbound message is stored.
type MessageIngestedEvent struct {
	MessageID  string    `json:"message_id"`
	ThreadID   string    `json:"thread_id"`
	From       string    `json:"from"`
	Subject    string    `json:"subject"`
	Approved   bool      `json:"approved"`
	IngestedAt time.Time `json:"ingested_at"`
}

// SenderApprovedEvent is published when a sender is added to the allow-list.
type SenderApprovedEvent struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	// Revealed is the number of previously hidden messages made visible
	// by this approval.
	Revealed   int64     `json:"revealed"`
	ApprovedAt time.Time `json:"approved_at"`
}

// MessageSentEvent is published when a draft is sent and persisted.
type MessageSentEvent struct {
	MessageID string    `json:"message_id"`
	DraftID   string    `json:"draft_id"`
	ThreadID  string    `json:"thread_id"`
	To        []string  `json:"to"`
	Subject   string    `json:"subject"`
	SentAt    time.Time `json:"sent_at"`
}

// MessageStatusChangedEvent is published when a delivery webhook advances
// a message's status.
type MessageStatusChangedEvent struct {
	MessageID string    `json:"message_id"`
	Status    string    `json:"status"`
	ChangedAt time.Time `json:"changed_at"`
}

// ServiceEvents holds per-service event instances. Each service binds its
// events to its own bus, so multiple services (and parallel tests) get
// independent routing.
type ServiceEvents struct {
	MessageIngested event.Event[MessageIngestedEvent]
	SenderApproved  event.Event[SenderApprovedEvent]
	MessageSent     event.Event[MessageSentEvent]
	StatusChanged   event.Event[MessageStatusChangedEvent]
}

// newServiceEvents creates event instances namespaced by bus name.
func newServiceEvents(namePrefix string) *ServiceEvents {
	return &ServiceEvents{
		MessageIngested: event.New[MessageIngestedEvent](namePrefix + "." + EventNameMessageIngested),
		SenderApproved:  event.New[SenderApprovedEvent](namePrefix + "." + EventNameSenderApproved),
		MessageSent:     event.New[MessageSentEvent](namePrefix + "." + EventNameMessageSent),
		StatusChanged:   event.New[MessageStatusChangedEvent](namePrefix + "." + EventNameStatusChanged),
	}
}

// registerServiceEvents binds the service's events to its bus.
func registerServiceEvents(ctx context.Context, bus *event.Bus, events *ServiceEvents) error {
	if err := tryRegister(ctx, bus, events.MessageIngested); err != nil {
		return err
	}
	if err := tryRegister(ctx, bus, events.SenderApproved); err != nil {
		return err
	}
	if err := tryRegister(ctx, bus, events.MessageSent); err != nil {
		return err
	}
	return tryRegister(ctx, bus, events.StatusChanged)
}

// tryRegister registers an event, ignoring already-bound errors so a
// service can be restarted within the same process.
func tryRegister[T any](ctx context.Context, bus *event.Bus, ev event.Event[T]) error {
	if err := event.Register(ctx, bus, ev); err != nil && !errors.Is(err, event.ErrAlreadyBound) {
		return err
	}
	return nil
}
