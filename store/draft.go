package store

import "time"

// Draft is a mutable outbound message being composed. Every field except
// ID and CreatedAt can change until the draft is sent, at which point it
// becomes an immutable Message and the draft row is deleted.
type Draft struct {
	ID string

	// ThreadID links the draft to an existing conversation. Empty for a
	// draft that starts a new thread.
	ThreadID string

	To      string
	Cc      string
	Bcc     string
	Subject string
	Body    string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DraftData contains initial content for a new draft. All fields are
// optional; an empty draft is valid.
type DraftData struct {
	ThreadID string
	To       string
	Cc       string
	Bcc      string
	Subject  string
	Body     string
}

// DraftPatch describes a partial draft update. Nil fields are left
// untouched; non-nil fields overwrite, including with the empty string.
type DraftPatch struct {
	ThreadID *string
	To       *string
	Cc       *string
	Bcc      *string
	Subject  *string
	Body     *string
}

// DraftList represents a paginated list of drafts.
type DraftList struct {
	Drafts  []*Draft
	Total   int64
	HasMore bool
}
