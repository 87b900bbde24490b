package relaybox

import (
	"errors"
	"fmt"

	"github.com/dmehra/relaybox/store"
)

// Service-level errors. Errors that correspond to store conditions are the
// store sentinels re-exported, so errors.Is matches at either level no
// matter which package wrapped the error.
var (
	// ErrNotFound is returned when a message, thread, draft, or sender does
	// not exist. Messages from unapproved senders are reported as not found
	// as well, so callers cannot distinguish hidden from absent.
	ErrNotFound = store.ErrNotFound

	// ErrInvalidID is returned when an identifier is malformed.
	ErrInvalidID = store.ErrInvalidID

	// ErrNotConnected is returned when the service is not connected.
	ErrNotConnected = store.ErrNotConnected

	// ErrAlreadyConnected is returned when Connect is called on a
	// connected service.
	ErrAlreadyConnected = store.ErrAlreadyConnected

	// ErrStoreRequired is returned by NewService when no store is configured.
	ErrStoreRequired = errors.New("relaybox: store is required")

	// ErrSenderRequired is returned by NewService when no sender is
	// configured. Sending drafts needs a provider client.
	ErrSenderRequired = errors.New("relaybox: sender is required")

	// ErrEmptyQuery is returned by Search when the query is empty or
	// whitespace only.
	ErrEmptyQuery = errors.New("relaybox: search query is empty")

	// ErrNoRecipient is returned by SendDraft when the draft has no
	// recipient address.
	ErrNoRecipient = errors.New("relaybox: draft has no recipient")

	// ErrBlobStoreRequired is returned by LoadAttachment when no blob
	// store is configured.
	ErrBlobStoreRequired = errors.New("relaybox: blob store is required")

	// ErrInvalidEmail is returned when a sender address is malformed.
	ErrInvalidEmail = store.ErrInvalidEmail

	// ErrInvalidStatus is returned when a delivery status is not one of
	// the known values.
	ErrInvalidStatus = store.ErrInvalidStatus
)

// UpstreamError wraps a failure from the external email provider.
// The operation that triggered the call did not complete.
type UpstreamError struct {
	// Op is the operation that called the provider, e.g. "send".
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("relaybox: upstream %s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// IsUpstreamError reports whether err is (or wraps) an UpstreamError.
func IsUpstreamError(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}

// EventPublishError indicates an operation succeeded but publishing its
// event failed. Only returned when WithEventErrorsFatal is enabled.
type EventPublishError struct {
	// Event is the name of the event that failed to publish.
	Event string
	// MessageID is the affected message, if any.
	MessageID string
	Err       error
}

func (e *EventPublishError) Error() string {
	return fmt.Sprintf("relaybox: publish %s event for message %s: %v", e.Event, e.MessageID, e.Err)
}

func (e *EventPublishError) Unwrap() error {
	return e.Err
}

// IsEventPublishError reports whether err is an event publish failure.
// When it is, the underlying operation completed; only the notification
// was lost.
func IsEventPublishError(err error) bool {
	var epe *EventPublishError
	return errors.As(err, &epe)
}

// IsNotFound reports whether err indicates a missing (or hidden) entity.
func IsNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
