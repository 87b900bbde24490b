package store

import "errors"

// Sentinel errors for the store package.
var (
	// ErrNotFound is returned when a record cannot be found. It is also
	// returned for messages that exist but are hidden behind the approval
	// gate, so callers cannot distinguish the two cases.
	ErrNotFound = errors.New("store: not found")

	// ErrInvalidID is returned when an invalid ID is provided.
	ErrInvalidID = errors.New("store: invalid id")

	// ErrDuplicateEntry is returned when a duplicate entry is detected.
	ErrDuplicateEntry = errors.New("store: duplicate entry")

	// ErrNotConnected is returned when operations are attempted before Connect().
	ErrNotConnected = errors.New("store: not connected")

	// ErrAlreadyConnected is returned when Connect() is called twice.
	ErrAlreadyConnected = errors.New("store: already connected")

	// ErrQuerySyntax is returned by SearchMessages when the query string is
	// not valid for the index's query language. Callers should degrade to
	// ScanMessages rather than surface this to the user.
	ErrQuerySyntax = errors.New("store: malformed search query")

	// ErrInvalidStatus is returned when a delivery status value is not one
	// of the known statuses.
	ErrInvalidStatus = errors.New("store: invalid delivery status")

	// ErrInvalidEmail is returned when a sender address is empty or malformed.
	ErrInvalidEmail = errors.New("store: invalid email address")

	// ErrFilterInvalid is returned when a filter is invalid.
	ErrFilterInvalid = errors.New("store: invalid filter")

	// ErrTransactionFailed is returned when a database transaction fails.
	// This indicates the atomic operation could not complete and no changes
	// were made.
	ErrTransactionFailed = errors.New("store: transaction failed")
)

// Error checking helpers.

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsInvalidID(err error) bool {
	return errors.Is(err, ErrInvalidID)
}

func IsQuerySyntax(err error) bool {
	return errors.Is(err, ErrQuerySyntax)
}

func IsNotConnected(err error) bool {
	return errors.Is(err, ErrNotConnected)
}
